package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zirius/shors/models"
)

const XForwardedHeader = "X-Forwarded-For"

// ClientIP prefers the first X-Forwarded-For hop over the peer address.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader(XForwardedHeader); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return c.ClientIP()
}

// FlattenHeaders joins repeated header values with ", ".
func FlattenHeaders(c *gin.Context) models.Headers {
	headers := make(models.Headers, len(c.Request.Header))
	for k, v := range c.Request.Header {
		headers[k] = strings.Join(v, ", ")
	}
	return headers
}

// HandleJSONResponse writes the {status_code, data, error} envelope. error is
// always a string, empty on success.
func HandleJSONResponse(c *gin.Context, statusCode int, data interface{}, err string) {
	c.JSON(statusCode, gin.H{
		"status_code": statusCode,
		"data":        data,
		"error":       err,
	})
}
