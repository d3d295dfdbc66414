package game

import (
	"context"
	"sync"
	"time"

	"github.com/Varga-Levente/catch-the-impostor/words"
)

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseVoting  Phase = "voting"
	PhaseEnded   Phase = "ended"
)

// ImpostorWord is the sentinel dealt to the impostor instead of the secret
// word.
const ImpostorWord = "IMPOSZTOR"

const MaxRoomNameLength = 20

// Event kinds emitted through the EventSink. Names are part of the client
// contract.
const (
	EventRoomsUpdated     = "roomsUpdated"
	EventRoomUpdated      = "roomUpdated"
	EventGameStarted      = "gameStarted"
	EventTimer            = "timer"
	EventVotingStarted    = "votingStarted"
	EventVotesUpdated     = "votesUpdated"
	EventGameEnded        = "gameEnded"
	EventPlayerKicked     = "playerKicked"
	EventRoundInvalidated = "roundInvalidated"
)

// EventSink is the fan-out target for engine events. Delivery must preserve
// per-room emission order and is at-most-once with no replay.
// Implementations must not block: emissions can happen under a room lock.
type EventSink interface {
	ToRoom(room, event string, payload any)
	ToPlayer(room, playerID, event string, payload any)
	ToAll(event string, payload any)
}

// Presence reports how many live subscriber connections a room currently
// has. The idle sweep uses it to detect rooms everyone abandoned without a
// clean leave.
type Presence interface {
	LiveConnections(room string) int
}

// WordProvider supplies the word pool and the game tunables.
type WordProvider interface {
	Words() []string
	Settings() words.Settings
}

type IDGenerator interface {
	NewID() string
}

// RandSource decouples the engine from math/rand so tests can fix the word
// and impostor draws. *rand.Rand satisfies it, but is not safe for
// concurrent use; see NewRand.
type RandSource interface {
	Intn(n int) int
}

// TickerSource hands out tick channels so tests can drive the countdown and
// the idle sweep manually. The returned stop func releases the ticker.
type TickerSource interface {
	Create(d time.Duration) (<-chan time.Time, func())
}

type Player struct {
	ID         string
	Name       string
	Word       string
	IsImpostor bool
}

// Room is a single session. All mutable state is guarded by mu; the name
// and pin never change after creation. Per-room events are published while
// mu is held so subscribers observe them in state order; the sink must not
// block. Cross-room emissions (the room list) never run under mu.
type Room struct {
	mu sync.Mutex

	name      string
	pin       string
	hostID    string
	players   []*Player
	phase     Phase
	secret    string
	votes     map[string]string
	createdAt time.Time

	cancelCountdown context.CancelFunc
}

// --- event payloads ---

type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerWord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Word string `json:"word"`
}

type RoomSummary struct {
	Name         string `json:"name"`
	PlayersCount int    `json:"playersCount"`
}

type RosterUpdate struct {
	Players []PlayerInfo `json:"players"`
	HostID  string       `json:"hostId"`
}

// WordDeal is the private gameStarted payload: each player sees the roster
// and only their own word.
type WordDeal struct {
	Players  []PlayerInfo `json:"players"`
	Word     string       `json:"word"`
	GameTime int          `json:"gameTime"`
}

// FullDeal is the legacy gameStarted payload broadcast to the whole room,
// words included.
type FullDeal struct {
	Players  []PlayerWord `json:"players"`
	GameTime int          `json:"gameTime"`
}

type RoundResult struct {
	ImpostorID     string         `json:"impostorId"`
	ImpostorCaught bool           `json:"impostorCaught"`
	VoteCount      map[string]int `json:"voteCount"`
}

type RoundInvalidated struct {
	Reason string `json:"reason"`
}

// RoomView is the transport-facing snapshot returned by create/join.
type RoomView struct {
	Name    string       `json:"name"`
	HostID  string       `json:"hostId"`
	Pin     string       `json:"pin,omitempty"`
	Players []PlayerInfo `json:"players"`
}

func (r *Room) rosterLocked() []PlayerInfo {
	roster := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, PlayerInfo{ID: p.ID, Name: p.Name})
	}
	return roster
}

func (r *Room) tallyLocked() map[string]int {
	tally := make(map[string]int)
	for _, votedID := range r.votes {
		tally[votedID]++
	}
	return tally
}

func (r *Room) viewLocked(includePin bool) RoomView {
	view := RoomView{
		Name:    r.name,
		HostID:  r.hostID,
		Players: r.rosterLocked(),
	}
	if includePin {
		view.Pin = r.pin
	}
	return view
}

// stopCountdownLocked cancels the running countdown, if any. Safe to call
// on every path that ends or discards a round.
func (r *Room) stopCountdownLocked() {
	if r.cancelCountdown != nil {
		r.cancelCountdown()
		r.cancelCountdown = nil
	}
}
