package middleware

import "github.com/gin-gonic/gin"

// NoCache marks every response as not cacheable by intermediaries.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		c.Next()
	}
}
