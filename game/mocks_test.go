package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/Varga-Levente/catch-the-impostor/words"
)

// --- EventSink ---

type sinkEvent struct {
	Room    string
	Player  string
	Event   string
	Payload any
}

type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (s *recordingSink) ToRoom(room, event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{Room: room, Event: event, Payload: payload})
}

func (s *recordingSink) ToPlayer(room, playerID, event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{Room: room, Player: playerID, Event: event, Payload: payload})
}

func (s *recordingSink) ToAll(event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{Event: event, Payload: payload})
}

func (s *recordingSink) all() []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkEvent(nil), s.events...)
}

func (s *recordingSink) byEvent(event string) []sinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []sinkEvent{}
	for _, e := range s.events {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

func (s *recordingSink) count(event string) int {
	return len(s.byEvent(event))
}

func (s *recordingSink) last(event string) (sinkEvent, bool) {
	matched := s.byEvent(event)
	if len(matched) == 0 {
		return sinkEvent{}, false
	}
	return matched[len(matched)-1], true
}

// laggySink records like recordingSink but stalls inside every room
// emission, widening any reordering window.
type laggySink struct {
	recordingSink
	delay time.Duration
}

func (s *laggySink) ToRoom(room, event string, payload any) {
	time.Sleep(s.delay)
	s.recordingSink.ToRoom(room, event, payload)
}

// --- Presence ---

type stubPresence struct {
	mu     sync.Mutex
	counts map[string]int
}

func newStubPresence() *stubPresence {
	return &stubPresence{counts: make(map[string]int)}
}

func (p *stubPresence) LiveConnections(room string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[room]
}

func (p *stubPresence) set(room string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[room] = n
}

// --- WordProvider ---

type stubProvider struct {
	words    []string
	settings words.Settings
}

func (p *stubProvider) Words() []string          { return p.words }
func (p *stubProvider) Settings() words.Settings { return p.settings }

// --- RandSource ---

// seqRand replays a fixed sequence of draws, then zeroes.
type seqRand struct {
	mu   sync.Mutex
	vals []int
	next int
}

func (r *seqRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next < len(r.vals) {
		v := r.vals[r.next] % n
		r.next++
		return v
	}
	return 0
}

// --- IDGenerator ---

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("p%d", s.n)
}

// --- TickerSource ---

// manualTicker hands every Create call the same channel so tests drive
// ticks by hand.
type manualTicker struct {
	mu    sync.Mutex
	ch    chan time.Time
	stops int
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) Create(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() {
		m.mu.Lock()
		m.stops++
		m.mu.Unlock()
	}
}

func (m *manualTicker) tick() {
	m.ch <- time.Now()
}

func (m *manualTicker) stopped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// --- fixture ---

type fixture struct {
	registry *Registry
	sink     *recordingSink
	presence *stubPresence
	rng      *seqRand
	ticker   *manualTicker
}

func newFixture(settings words.Settings, draws []int, privateDeals bool) *fixture {
	f := &fixture{
		sink:     &recordingSink{},
		presence: newStubPresence(),
		rng:      &seqRand{vals: draws},
		ticker:   newManualTicker(),
	}
	provider := &stubProvider{
		words:    []string{"KUTYA", "MACSKA", "ELEFÁNT"},
		settings: settings,
	}
	f.registry = NewRegistry(provider, f.sink, f.presence, &seqIDs{}, f.rng, f.ticker, privateDeals)
	return f
}

func testSettings(minPlayers, maxPlayers, gameTime int) words.Settings {
	return words.Settings{
		GameTime:            gameTime,
		MinPlayers:          minPlayers,
		MaxPlayers:          maxPlayers,
		VotingTime:          60,
		ReconnectionTimeout: 30000,
		RoomCleanupInterval: 300000,
	}
}
