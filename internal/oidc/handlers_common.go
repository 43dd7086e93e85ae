package oidc

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func writeOAuthError(c *gin.Context, status int, errCode, description string) {
	c.JSON(status, OAuthError{Error: errCode, ErrorDescription: description})
}

// serverError hides infrastructure failures behind a generic response; the
// detail stays in the server log.
func serverError(c *gin.Context, operation string, err error) {
	slog.Error("request failed", "operation", operation, "error", err)
	writeOAuthError(c, http.StatusInternalServerError, "server_error", "request could not be processed")
}
