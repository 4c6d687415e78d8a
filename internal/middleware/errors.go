package middleware

import "github.com/gin-gonic/gin"

// abortWithError writes the gateway error envelope and stops the chain.
func abortWithError(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":        code,
			"description": description,
		},
	})
}
