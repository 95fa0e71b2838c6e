package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NewNumber returns a human-readable order number: "ORD-", the last six
// digits of the millisecond clock and three random digits. Uniqueness is
// enforced by the store; callers regenerate on ErrDuplicateNumber.
func NewNumber(now time.Time) string {
	ms := now.UnixMilli() % 1_000_000
	return fmt.Sprintf("ORD-%06d%03d", ms, rand.IntN(1000))
}
