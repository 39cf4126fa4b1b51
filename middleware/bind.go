package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const credentialsKey = "tokengate.credentials"

// Credentials is the JSON body of /auth/register and /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// BindCredentials decodes the request body into Credentials. Missing fields
// and an empty body are left for the engine to reject; a body that is not a
// JSON object halts with 400.
func BindCredentials() Check {
	return func(c *gin.Context) Outcome {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil && !errors.Is(err, io.EOF) {
			return Halt(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		}
		c.Set(credentialsKey, creds)
		return Continue()
	}
}

// CredentialsFromContext returns the body bound by BindCredentials.
func CredentialsFromContext(c *gin.Context) Credentials {
	v, _ := c.Get(credentialsKey)
	creds, _ := v.(Credentials)
	return creds
}
