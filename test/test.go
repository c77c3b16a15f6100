// Package test holds shared test helpers. The live service helpers skip the
// calling test when their environment variable is unset.
package test

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func GetTestPgURL(t *testing.T) string {
	return lookup(t, "DATABASE_URL")
}

// GetTestPgSchemaURL creates an empty schema, dropped when the test ends, and
// returns a DATABASE_URL whose search_path points at it.
func GetTestPgSchemaURL(t *testing.T) string {
	base := GetTestPgURL(t)
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	db, err := sqlx.Open("postgres", base)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE SCHEMA " + schema); err != nil {
		db.Close()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Exec("DROP SCHEMA " + schema + " CASCADE")
		db.Close()
	})

	u, err := url.Parse(base)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

func GetTestMongoURI(t *testing.T) string {
	return lookup(t, "MONGO_URI")
}

func GetTestRedisURL(t *testing.T) string {
	return lookup(t, "REDIS_URL")
}

func lookup(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set", key)
	}
	return v
}

// GetTestRouter returns a bare gin engine in test mode.
func GetTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
