package middleware

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/tokengate"
	"github.com/gin-gonic/gin"
)

const identityKey = "tokengate.identity"

// IdentityFromContext returns the identity stored by Authorize.
func IdentityFromContext(c *gin.Context) (*tokengate.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*tokengate.Identity)
	return id, ok && id != nil
}

// Authorize verifies the Authorization header. A missing or badly framed
// header halts with 401, any rejected token with 403; both bodies are empty.
func Authorize(engine *tokengate.Engine) Check {
	return func(c *gin.Context) Outcome {
		id, err := engine.Authorize(c.Request.Context(), c.GetHeader("Authorization"))
		switch {
		case err == nil:
			c.Set(identityKey, id)
			return Continue()
		case errors.Is(err, tokengate.ErrNoToken):
			return Halt(http.StatusUnauthorized, nil)
		case errors.Is(err, tokengate.ErrForbidden):
			return Halt(http.StatusForbidden, nil)
		default:
			return internalError(c, err)
		}
	}
}

// Guard is a gin handler running only the Authorize check.
func Guard(engine *tokengate.Engine) gin.HandlerFunc {
	return Pipeline(Authorize(engine))
}
