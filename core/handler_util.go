package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondUnauthorized sends a 401 with the bearer challenge the client
// is expected to satisfy.
func respondUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}
