// Package rate_limit provides the admission-control primitives shared by
// every provider backend: a leaky-bucket Limiter for request and token
// rates, and a counting-permit Gate bounding in-flight calls.
package rate_limit

import "time"

// Rate defines a capacity replenished over a period, e.g. 500 requests
// per 3 seconds or 500K tokens per 15 seconds.
type Rate struct {
	Amount int
	Period time.Duration
}

// RateLimit pairs the request-rate and token-rate settings for one model.
type RateLimit struct {
	Requests Rate
	Tokens   Rate
}

// DefaultConnectionLimit is the default cap on simultaneous in-flight
// calls per provider, whether enforced by a Gate or a connection pool.
const DefaultConnectionLimit = 100
