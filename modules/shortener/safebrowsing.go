package shortener

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/safebrowsing"
	"github.com/pkg/errors"
)

// SafeBrowsingScreener checks urls against the Google Safe Browsing lists.
type SafeBrowsingScreener struct {
	sb *safebrowsing.SafeBrowser
}

func NewSafeBrowsingScreener(apiKey string) (*SafeBrowsingScreener, error) {
	sb, err := safebrowsing.NewSafeBrowser(safebrowsing.Config{
		APIKey: apiKey,
		ID:     "shors",
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating safe browser")
	}
	return &SafeBrowsingScreener{sb: sb}, nil
}

func (s *SafeBrowsingScreener) Screen(_ context.Context, longURL string) (string, error) {
	threats, err := s.sb.LookupURLs([]string{longURL})
	if err != nil {
		return "", errors.Wrap(err, "looking up url")
	}
	if len(threats) == 0 || len(threats[0]) == 0 {
		return "", nil
	}

	var kinds []string
	for _, t := range threats[0] {
		kinds = append(kinds, fmt.Sprint(t.ThreatType))
	}
	return strings.Join(kinds, ","), nil
}

func (s *SafeBrowsingScreener) Close() error {
	return s.sb.Close()
}
