package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/middleware"
)

// statusFor maps an engine error to its HTTP status. Rate limit refusals
// never reach handlers; middleware.RateLimit answers them.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, tokengate.ErrMissingFields), errors.Is(err, tokengate.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tokengate.ErrInvalidCredentials), errors.Is(err, tokengate.ErrNoToken):
		return http.StatusUnauthorized
	case errors.Is(err, tokengate.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, tokengate.ErrUsernameTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody returns the JSON body for err, or nil for the bodiless 401/403
// token rejections.
func errorBody(status int, err error) gin.H {
	var validation *tokengate.ValidationError
	switch {
	case errors.Is(err, tokengate.ErrNoToken), errors.Is(err, tokengate.ErrForbidden):
		return nil
	case errors.Is(err, tokengate.ErrMissingFields):
		return gin.H{"message": "Username and password are required"}
	case errors.As(err, &validation):
		return gin.H{"message": validation.Reason}
	case errors.Is(err, tokengate.ErrInvalidCredentials):
		return gin.H{"message": "Invalid username or password"}
	case errors.Is(err, tokengate.ErrUsernameTaken):
		return gin.H{"message": "Username already exists"}
	}

	if status == http.StatusInternalServerError {
		return middleware.InternalErrorBody(err)
	}
	return gin.H{"message": http.StatusText(status)}
}
