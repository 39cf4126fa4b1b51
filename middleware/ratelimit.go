package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/gin-gonic/gin"
)

var rateLimitMessages = map[tokengate.RatePolicy]string{
	tokengate.RatePolicyLogin:     "Too many login attempts from this IP, please try again after 15 minutes",
	tokengate.RatePolicyRegister:  "Too many registration attempts from this IP, please try again after 1 hour",
	tokengate.RatePolicySensitive: "Too many requests to sensitive endpoints, please try again after 1 hour",
	tokengate.RatePolicyAPI:       "Too many requests from this IP, please try again after 15 minutes",
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(*gin.Context) string

// IPBasedKey keys rate limits by client IP as resolved by gin's trusted
// proxy settings.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit records one attempt under policy for the client IP. Accepted
// requests get RateLimit-* headers; refused ones halt with 429, a
// Retry-After header and {message, retryAfter} where retryAfter is in
// minutes, rounded up.
func RateLimit(engine *tokengate.Engine, policy tokengate.RatePolicy) Check {
	return RateLimitBy(engine, policy, IPBasedKey)
}

// RateLimitBy is RateLimit with a custom key.
func RateLimitBy(engine *tokengate.Engine, policy tokengate.RatePolicy, key KeyFunc) Check {
	if key == nil {
		key = IPBasedKey
	}
	return func(c *gin.Context) Outcome {
		st, err := engine.CheckRate(c.Request.Context(), policy, key(c))
		if err == nil {
			if st.Limit > 0 {
				c.Header("RateLimit-Limit", strconv.Itoa(st.Limit))
				c.Header("RateLimit-Remaining", strconv.Itoa(st.Remaining))
				c.Header("RateLimit-Reset", strconv.Itoa(ceilUnits(st.ResetIn, time.Second)))
			}
			return Continue()
		}

		var limitErr *tokengate.RateLimitError
		if !errors.As(err, &limitErr) {
			return internalError(c, err)
		}

		seconds := ceilUnits(limitErr.RetryAfter, time.Second)
		return Halt(http.StatusTooManyRequests, gin.H{
			"message":    rateLimitMessage(policy),
			"retryAfter": ceilUnits(limitErr.RetryAfter, time.Minute),
		}).
			WithHeader("Retry-After", strconv.Itoa(seconds)).
			WithHeader("RateLimit-Limit", strconv.Itoa(limitErr.Limit)).
			WithHeader("RateLimit-Remaining", "0").
			WithHeader("RateLimit-Reset", strconv.Itoa(seconds))
	}
}

func rateLimitMessage(policy tokengate.RatePolicy) string {
	if msg, ok := rateLimitMessages[policy]; ok {
		return msg
	}
	return rateLimitMessages[tokengate.RatePolicyAPI]
}

// ceilUnits returns d in whole units, rounded up, and never less than 1.
func ceilUnits(d, unit time.Duration) int {
	n := int((d + unit - 1) / unit)
	if n < 1 {
		return 1
	}
	return n
}
