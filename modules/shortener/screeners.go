package shortener

import (
	"context"
)

// Screeners runs each screener in turn and reports the first threat found.
type Screeners []Screener

func (s Screeners) Screen(ctx context.Context, longURL string) (string, error) {
	var firstErr error
	for _, screener := range s {
		threat, err := screener.Screen(ctx, longURL)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if threat != "" {
			return threat, nil
		}
	}
	return "", firstErr
}
