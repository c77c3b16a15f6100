package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zirius/shors/modules/analytics"
	"github.com/zirius/shors/modules/shortener"
)

func Shortener(s *shortener.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("Shortener", s)
		c.Next()
	}
}

func GetShortener(c *gin.Context) *shortener.Service {
	return c.Value("Shortener").(*shortener.Service)
}

func Analytics(p *analytics.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("Analytics", p)
		c.Next()
	}
}

func GetAnalytics(c *gin.Context) *analytics.Pipeline {
	return c.Value("Analytics").(*analytics.Pipeline)
}
