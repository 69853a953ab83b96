package powerbitom

import "sync/atomic"

// SeedState records whether the settings memory has been seeded in this
// process. It is owned by the host and shared by every Service it builds.
type SeedState struct {
	attempted atomic.Bool
}

func NewSeedState() *SeedState {
	return &SeedState{}
}

// Begin reports whether the caller is the first to attempt seeding. The flag
// is set before the write, so a failed write is never retried.
func (s *SeedState) Begin() bool {
	return s.attempted.CompareAndSwap(false, true)
}

func (s *SeedState) Attempted() bool {
	return s.attempted.Load()
}
