package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

func NewIDGenerator() IDGenerator { return uuidGenerator{} }

// lockedRand guards a *rand.Rand so concurrent starts in different rooms
// can share one source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRand() RandSource {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

type tickerSource struct{}

func (tickerSource) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func NewTickerSource() TickerSource { return tickerSource{} }
