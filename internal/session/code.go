package session

import (
	"math/rand"
	"strconv"
	"time"
)

const (
	codeMin  = 100000
	codeSpan = 900000
)

// Allocator draws unique 6-digit numeric session codes. The caller supplies
// the authoritative set of currently-registered codes; the allocator retries
// until the draw is absent from it.
type Allocator struct {
	intn func(n int) int
}

// NewAllocator returns an allocator seeded from the wall clock.
func NewAllocator() *Allocator {
	return NewAllocatorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewAllocatorWithRand returns an allocator using the given source, so tests
// can make draws deterministic.
func NewAllocatorWithRand(r *rand.Rand) *Allocator {
	return &Allocator{intn: r.Intn}
}

// Allocate returns a 6-digit code not present in existing. It never returns
// a taken code; with all 900000 codes taken it would not terminate, which is
// acceptable at the expected scale of concurrently live sessions.
func (a *Allocator) Allocate(existing map[string]struct{}) string {
	for {
		code := strconv.Itoa(codeMin + a.intn(codeSpan))
		if _, taken := existing[code]; !taken {
			return code
		}
	}
}
