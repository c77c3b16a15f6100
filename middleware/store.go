package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zirius/shors/store"
)

func Store(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("Store", st)
		c.Next()
	}
}

func GetStore(c *gin.Context) store.Store {
	return c.Value("Store").(store.Store)
}
