package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Outcome is the result of one Check.
type Outcome struct {
	halt    bool
	status  int
	body    any
	headers map[string]string
}

// Continue lets the pipeline proceed to the next check.
func Continue() Outcome {
	return Outcome{}
}

// Halt stops the pipeline and responds with status. A nil body sends no
// content; anything else is rendered as JSON.
func Halt(status int, body any) Outcome {
	return Outcome{halt: true, status: status, body: body}
}

// WithHeader sets a response header written only if the outcome halts.
func (o Outcome) WithHeader(key, value string) Outcome {
	if o.headers == nil {
		o.headers = make(map[string]string, 4)
	}
	o.headers[key] = value
	return o
}

// Halted reports whether the outcome stops the pipeline.
func (o Outcome) Halted() bool { return o.halt }

// Status is the response status of a halting outcome.
func (o Outcome) Status() int { return o.status }

// Check is one step of a request pipeline.
type Check func(*gin.Context) Outcome

// Pipeline runs checks in order and aborts on the first Halt.
func Pipeline(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, check := range checks {
			out := check(c)
			if !out.halt {
				continue
			}
			for k, v := range out.headers {
				c.Header(k, v)
			}
			if out.body == nil {
				c.AbortWithStatus(out.status)
				return
			}
			c.AbortWithStatusJSON(out.status, out.body)
			return
		}
		c.Next()
	}
}

// InternalErrorBody is the 500 response body. The error text is included
// only when gin runs in debug mode.
func InternalErrorBody(err error) gin.H {
	detail := "Something went wrong"
	if gin.IsDebugging() && err != nil {
		detail = err.Error()
	}
	return gin.H{
		"message": "Internal server error",
		"error":   detail,
	}
}

func internalError(c *gin.Context, err error) Outcome {
	_ = c.Error(err)
	return Halt(http.StatusInternalServerError, InternalErrorBody(err))
}
