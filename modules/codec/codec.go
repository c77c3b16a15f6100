// Package codec turns counter values into short ids and back using hashids.
package codec

import (
	"math"

	"github.com/pkg/errors"
	"github.com/speps/go-hashids/v2"
)

const (
	DefaultMinLength = 2

	// values above MaxInt64 are split into two 32 bit halves
	splitShift = 32
	lowMask    = 1<<splitShift - 1
	minHigh    = 1 << 31
)

var ErrInvalidID = errors.New("invalid id")

type Options struct {
	Salt      string
	MinLength int
}

type Codec struct {
	h *hashids.HashID
}

func New(opts Options) (*Codec, error) {
	hd := hashids.NewData()
	hd.Salt = opts.Salt
	hd.MinLength = opts.MinLength
	if hd.MinLength == 0 {
		hd.MinLength = DefaultMinLength
	}

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, errors.Wrap(err, "creating hashids")
	}
	return &Codec{h: h}, nil
}

// Encode is deterministic and injective over the whole uint64 range.
func (c *Codec) Encode(n uint64) string {
	var nums []int64
	if n <= math.MaxInt64 {
		nums = []int64{int64(n)}
	} else {
		nums = []int64{int64(n >> splitShift), int64(n & lowMask)}
	}

	id, err := c.h.EncodeInt64(nums)
	if err != nil {
		// only negative inputs fail, which the split above rules out
		panic(err)
	}
	return id
}

// Decode accepts only ids Encode could have produced.
func (c *Codec) Decode(id string) (uint64, error) {
	if id == "" {
		return 0, ErrInvalidID
	}

	nums, err := c.h.DecodeInt64WithError(id)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidID, err.Error())
	}

	var n uint64
	switch {
	case len(nums) == 1 && nums[0] >= 0:
		n = uint64(nums[0])
	case len(nums) == 2 && nums[0] >= minHigh && nums[0] <= lowMask && nums[1] >= 0 && nums[1] <= lowMask:
		n = uint64(nums[0])<<splitShift | uint64(nums[1])
	default:
		return 0, ErrInvalidID
	}

	if c.Encode(n) != id {
		return 0, ErrInvalidID
	}
	return n, nil
}
