package models

import (
	"time"
)

// SchemaVersion is stamped on every stored document.
const SchemaVersion = 1

type URL struct {
	ID            string    `json:"id" db:"id" bson:"id"`
	LongURL       string    `json:"long_url" db:"long_url" bson:"long_url"`
	Link          string    `json:"link" db:"link" bson:"link"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	Archived      bool      `json:"archived" db:"archived" bson:"archived"`
	SchemaVersion int       `json:"-" db:"schema_version" bson:"schema_version"`
}

// NewURL builds the record for a freshly issued id. Archived is reserved and
// always starts out false.
func NewURL(id, longURL, linkPrefix string, created time.Time) *URL {
	return &URL{
		ID:            id,
		LongURL:       longURL,
		Link:          linkPrefix + id,
		CreatedAt:     created.UTC(),
		Archived:      false,
		SchemaVersion: SchemaVersion,
	}
}
