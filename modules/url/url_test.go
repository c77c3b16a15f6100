package url

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zirius/shors/memdb"
	"github.com/zirius/shors/middleware"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/modules/analytics"
	"github.com/zirius/shors/modules/codec"
	"github.com/zirius/shors/modules/shortener"
	"github.com/zirius/shors/store"
	"github.com/zirius/shors/test"
)

const iPhoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

type response struct {
	StatusCode int         `json:"status_code"`
	Data       *models.URL `json:"data"`
	Error      string      `json:"error"`
}

type downStore struct {
	*memdb.Store
}

func (downStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func (downStore) InsertURL(context.Context, *models.URL) error {
	return errors.New("connection refused")
}

type testServer struct {
	router   *gin.Engine
	pipeline *analytics.Pipeline
	codec    *codec.Codec
}

func setup(t *testing.T, st store.Store, opts shortener.Options) *testServer {
	c, err := codec.New(codec.Options{Salt: "test"})
	require.Nil(t, err)
	svc, err := shortener.New(context.Background(), st, c, opts)
	require.Nil(t, err)

	pipeline := analytics.New(st, st, analytics.Options{})
	pipeline.Start()

	router := test.GetTestRouter()
	router.Use(middleware.Store(st))
	router.Use(middleware.Shortener(svc))
	router.Use(middleware.Analytics(pipeline))
	Routes(router)

	return &testServer{router: router, pipeline: pipeline, codec: c}
}

func (s *testServer) drain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Nil(t, s.pipeline.Shutdown(ctx))
}

func shorten(router *gin.Engine, body string) (*httptest.ResponseRecorder, response) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/shorten", strings.NewReader(body))
	req.Header.Add("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var res response
	json.Unmarshal(w.Body.Bytes(), &res)
	return w, res
}

func TestShortenAndRedirect(t *testing.T) {
	s := setup(t, memdb.New(), shortener.Options{})
	id := s.codec.Encode(0)

	{
		w, res := shorten(s.router, `{"url": "https://example.com"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, http.StatusCreated, res.StatusCode)
		assert.Equal(t, "", res.Error)
		assert.Contains(t, w.Body.String(), `"error":""`)
		require.NotNil(t, res.Data)
		assert.Equal(t, id, res.Data.ID)
		assert.Equal(t, "https://sho.rs/"+id, res.Data.Link)
		assert.Equal(t, "https://example.com", res.Data.LongURL)
		assert.False(t, res.Data.Archived)
	}
	for _, ua := range []string{iPhoneUA, iPhoneUA} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", fmt.Sprintf("/%v", id), nil)
		req.Header.Set("User-Agent", ua)
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "https://example.com", w.Header().Get("Location"))
	}

	s.drain(t)

	{
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", fmt.Sprintf("/api/%v", id), nil)
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var summary models.AnalyticsSummary
		assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, uint64(2), summary.Count)
		assert.Equal(t, map[string]uint64{analytics.DeviceSmartphone: 2}, summary.Devices)
	}
}

func TestGetNotFound(t *testing.T) {
	s := setup(t, memdb.New(), shortener.Options{})
	defer s.drain(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/"+s.codec.Encode(42), nil)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var res response
	assert.Nil(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Nil(t, res.Data)
	assert.Equal(t, NotFoundMessage, res.Error)
}

func TestGetSummaryEmpty(t *testing.T) {
	s := setup(t, memdb.New(), shortener.Options{})
	defer s.drain(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/unknown", nil)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 0, "devices": {}, "client_os": {}}`, w.Body.String())
}

func TestShortenErrors(t *testing.T) {
	s := setup(t, memdb.New(), shortener.Options{})
	defer s.drain(t)

	w, res := shorten(s.router, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, res.Data)

	w, res = shorten(s.router, `{"url": "example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, InvalidURLMessage, res.Error)
}

type unsafeScreener struct{}

func (unsafeScreener) Screen(context.Context, string) (string, error) {
	return "MALWARE", nil
}

func TestShortenUnsafe(t *testing.T) {
	s := setup(t, memdb.New(), shortener.Options{Screener: unsafeScreener{}})
	defer s.drain(t)

	w, res := shorten(s.router, `{"url": "https://malware.example.com"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, UnsafeURLMessage, res.Error)
}

func TestStoreDown(t *testing.T) {
	s := setup(t, downStore{memdb.New()}, shortener.Options{})
	defer s.drain(t)

	w, res := shorten(s.router, `{"url": "https://example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ServerErrorMessage, res.Error)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/status", nil)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatus(t *testing.T) {
	s := setup(t, memdb.New(), shortener.Options{})
	defer s.drain(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/status", nil)
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "OK"}`, w.Body.String())
}
