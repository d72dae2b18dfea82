package lottery

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// Shuffler produces an unbiased permutation of n indices. The draw must give
// every permutation equal probability, so implementations are expected to be
// Fisher-Yates or equivalent.
type Shuffler interface {
	Perm(n int) []int
}

// cryptoSeededShuffler is a math/rand Fisher-Yates permutation seeded from
// the OS entropy source, locked because draws for different events may run
// concurrently.
type cryptoSeededShuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewShuffler() Shuffler {
	var seed int64
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return &cryptoSeededShuffler{rng: rand.New(rand.NewSource(seed))}
}

func (s *cryptoSeededShuffler) Perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Perm(n)
}
