package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	newrelic "github.com/newrelic/go-agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zirius/shors/memdb"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("RequestID"))
	})

	{
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/", nil)
		router.ServeHTTP(w, req)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())
	}
	{
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	}
}

func TestStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := memdb.New()

	router := gin.New()
	router.Use(Store(st))
	router.GET("/", func(c *gin.Context) {
		assert.Equal(t, st, GetStore(c))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNewRelic(t *testing.T) {
	_, err := NewRelic(newrelic.NewConfig("shors", "not-a-license-key"))
	assert.NotNil(t, err)

	config := newrelic.NewConfig("shors", "")
	config.Enabled = false
	nr, err := NewRelic(config)
	require.Nil(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(nr)
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
