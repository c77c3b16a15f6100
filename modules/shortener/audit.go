package shortener

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zirius/shors/modules/codec"
	"github.com/zirius/shors/store"
)

// Report compares the durable counter against the records issued from it.
type Report struct {
	Counter uint64 `json:"counter"`
	Records uint64 `json:"records"`
	// NextID is the id the counter will hand out next.
	NextID string `json:"next_id"`
	// NextIDTaken means a record already holds NextID, so every mirror mode
	// shorten fails until the counter is moved past it.
	NextIDTaken bool `json:"next_id_taken"`
}

// Diverged reports whether the counter and the record count disagree. In
// atomic mode a counter ahead of the records only means ids were burned.
func (r *Report) Diverged() bool {
	return r.Counter != r.Records
}

// Audit only reads; it never repairs the counter.
func Audit(ctx context.Context, st Store, c *codec.Codec) (*Report, error) {
	n, err := st.ReadOrInit(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading counter")
	}
	records, err := st.CountURLs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting records")
	}

	r := &Report{
		Counter: n,
		Records: records,
		NextID:  c.Encode(n),
	}
	_, err = st.FindURL(ctx, r.NextID)
	switch {
	case err == nil:
		r.NextIDTaken = true
	case !store.IsNotFound(err):
		return nil, errors.Wrap(err, "checking next id")
	}
	return r, nil
}
