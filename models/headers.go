package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

/*Headers is the type for the request headers captured with an analytics event */
type Headers map[string]string

/*Value is the interface (driver.Valuer) that transforms our type
  to a database driver compatible type (marshall the map to JSONB)*/
func (h Headers) Value() (driver.Value, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	j, err := json.Marshal(h)
	return j, err
}

/*Scan is the second interface (sql.Scanner), which takes the raw data from the database
  and transforms it to our type (unmarshal the JSONB([]byte) to Headers type)*/
func (h *Headers) Scan(src interface{}) error {
	var source []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("Type assertion .([]byte) failed.")
	}

	var m map[string]string
	if err := json.Unmarshal(source, &m); err != nil {
		return err
	}
	*h = Headers(m)
	return nil
}

// Get looks a header up by name, ignoring case.
func (h Headers) Get(name string) (string, bool) {
	if v, ok := h[http.CanonicalHeaderKey(name)]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
