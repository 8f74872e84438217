package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase maps a sentinel error to its HTTP representation.
type ErrorCase struct {
	Err     error
	Status  int
	Kind    string
	Message string
}

// RespondWithMappedError walks the cases in order and writes the first
// match. Unmatched errors fall back to a generic 500 so internals never
// leak to the client.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase) {
	for _, mapping := range cases {
		if errors.Is(err, mapping.Err) {
			c.JSON(mapping.Status, NewErrorResponse(c, mapping.Kind, mapping.Message))
			return
		}
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal", "internal server error"))
}
