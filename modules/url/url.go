package url

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zirius/shors/middleware"
	"github.com/zirius/shors/modules/metrics"
	"github.com/zirius/shors/modules/shortener"
	"github.com/zirius/shors/modules/utils"
)

const (
	NotFoundMessage    = "No URL found."
	InvalidURLMessage  = "Invalid URL. URLs must be absolute http or https links."
	BadRequestMessage  = "Request body must be JSON with a url field."
	UnsafeURLMessage   = "The link is detected as unsafe."
	ServerErrorMessage = "Oops. Something went wrong. Please try again."
)

type ShortenRequest struct {
	URL string `json:"url"`
}

// Routes registers the API and redirect handlers. Static routes win over
// the id parameter.
func Routes(router gin.IRoutes) {
	router.POST("/api/shorten", Shorten)
	router.GET("/api/status", Status)
	router.GET("/api/:id", GetSummary)
	router.GET("/:id", Get)
}

func Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.ShortenErrorsTotal.WithLabelValues("invalid").Inc()
		utils.HandleJSONResponse(c, http.StatusBadRequest, nil, BadRequestMessage)
		return
	}

	rec, err := middleware.GetShortener(c).Shorten(c.Request.Context(), req.URL)
	switch errors.Cause(err) {
	case nil:
		utils.HandleJSONResponse(c, http.StatusCreated, rec, "")
	case shortener.ErrInvalidURL:
		utils.HandleJSONResponse(c, http.StatusBadRequest, nil, InvalidURLMessage)
	case shortener.ErrUnsafeURL:
		log.WithField("url", req.URL).WithError(err).Warn("Rejected unsafe url")
		utils.HandleJSONResponse(c, http.StatusForbidden, nil, UnsafeURLMessage)
	default:
		c.Error(err)
		log.WithField("url", req.URL).WithError(err).Error("Error shortening url")
		utils.HandleJSONResponse(c, http.StatusInternalServerError, nil, ServerErrorMessage)
	}
}

// Get redirects to the long url and records the visit.
func Get(c *gin.Context) {
	start := time.Now()
	id := c.Param("id")

	longURL, ok := middleware.GetShortener(c).Resolve(c.Request.Context(), id)
	if !ok {
		metrics.RedirectsTotal.WithLabelValues("not_found").Inc()
		utils.HandleJSONResponse(c, http.StatusNotFound, nil, NotFoundMessage)
		return
	}

	middleware.GetAnalytics(c).Capture(id, utils.FlattenHeaders(c), utils.ClientIP(c))

	c.Redirect(http.StatusMovedPermanently, longURL)
	metrics.RedirectsTotal.WithLabelValues("found").Inc()
	metrics.RedirectDuration.Observe(time.Since(start).Seconds())
}

func GetSummary(c *gin.Context) {
	id := c.Param("id")
	summary := middleware.GetAnalytics(c).Aggregate(c.Request.Context(), id)

	log.WithFields(log.Fields{
		"id":    id,
		"count": summary.Count,
	}).Debug("Returned analytics")

	c.JSON(http.StatusOK, summary)
}

func Status(c *gin.Context) {
	if err := middleware.GetStore(c).Ping(c.Request.Context()); err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"status": "NOT OK",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "OK",
	})
}
