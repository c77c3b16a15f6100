package middleware

import (
	"github.com/gin-gonic/gin"
	newrelic "github.com/newrelic/go-agent"
	"github.com/newrelic/go-agent/_integrations/nrgin/v1"
	"github.com/pkg/errors"
)

// NewRelic reports every request as a New Relic transaction.
func NewRelic(config newrelic.Config) (gin.HandlerFunc, error) {
	app, err := newrelic.NewApplication(config)
	if err != nil {
		return nil, errors.Wrap(err, "initializing new relic")
	}
	return nrgin.Middleware(app), nil
}
