package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Registry owns the name → room table. Its lock only guards the table
// itself; each room serializes its own state behind its own mutex. Lock
// order is always registry before room, never the reverse.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	provider WordProvider
	sink     EventSink
	presence Presence
	ids      IDGenerator
	rng      RandSource
	tickers  TickerSource

	// When true, gameStarted deals each player only their own word.
	// When false, the full word mapping is broadcast to the room the way
	// the original server did.
	privateWordDeals bool
}

func NewRegistry(
	provider WordProvider,
	sink EventSink,
	presence Presence,
	ids IDGenerator,
	rng RandSource,
	tickers TickerSource,
	privateWordDeals bool,
) *Registry {
	return &Registry{
		rooms:            make(map[string]*Room),
		provider:         provider,
		sink:             sink,
		presence:         presence,
		ids:              ids,
		rng:              rng,
		tickers:          tickers,
		privateWordDeals: privateWordDeals,
	}
}

// lockRoom returns the room with its mutex held. The table lock is released
// only after the room lock is taken, so a room obtained here cannot have
// been deleted underneath the caller.
func (g *Registry) lockRoom(name string) (*Room, error) {
	g.mu.RLock()
	room, ok := g.rooms[name]
	if !ok {
		g.mu.RUnlock()
		return nil, ErrRoomNotFound
	}
	room.mu.Lock()
	g.mu.RUnlock()
	return room, nil
}

// CreateRoom registers a new room with the caller as host.
func (g *Registry) CreateRoom(name, hostName string) (RoomView, error) {
	if name == "" || len(name) > MaxRoomNameLength {
		return RoomView{}, ErrNameInvalid
	}

	host := &Player{ID: g.ids.NewID(), Name: hostName}
	room := &Room{
		name:      name,
		pin:       g.newPin(),
		hostID:    host.ID,
		players:   []*Player{host},
		phase:     PhaseWaiting,
		votes:     make(map[string]string),
		createdAt: time.Now(),
	}

	g.mu.Lock()
	if _, exists := g.rooms[name]; exists {
		g.mu.Unlock()
		return RoomView{}, ErrNameTaken
	}
	g.rooms[name] = room
	g.mu.Unlock()

	log.Info().Str("room", name).Str("host", hostName).Msg("room created")
	g.emitRoomList()

	room.mu.Lock()
	view := room.viewLocked(true)
	room.mu.Unlock()
	return view, nil
}

// JoinRoom appends a new player to the roster.
func (g *Registry) JoinRoom(name, pin, playerName string) (string, RoomView, error) {
	maxPlayers := g.provider.Settings().MaxPlayers

	room, err := g.lockRoom(name)
	if err != nil {
		return "", RoomView{}, err
	}
	if room.pin != pin {
		room.mu.Unlock()
		return "", RoomView{}, ErrBadPin
	}
	if room.phase == PhasePlaying || room.phase == PhaseVoting {
		room.mu.Unlock()
		return "", RoomView{}, ErrInProgress
	}
	if len(room.players) >= maxPlayers {
		room.mu.Unlock()
		return "", RoomView{}, ErrRoomFull
	}

	player := &Player{ID: g.ids.NewID(), Name: playerName}
	room.players = append(room.players, player)
	g.sink.ToRoom(name, EventRoomUpdated, RosterUpdate{Players: room.rosterLocked(), HostID: room.hostID})
	view := room.viewLocked(true)
	room.mu.Unlock()

	log.Info().Str("room", name).Str("player", playerName).Msg("player joined")
	g.emitRoomList()
	return player.ID, view, nil
}

// Leave removes a player from the roster. Unknown players are ignored, so
// a leave racing a kick stays idempotent.
func (g *Registry) Leave(name, playerID string) error {
	room, err := g.lockRoom(name)
	if err != nil {
		return err
	}
	g.finishRemoval(room, playerID, false)
	return nil
}

// Kick removes a player on behalf of the host.
func (g *Registry) Kick(name, playerID, requesterID string) error {
	room, err := g.lockRoom(name)
	if err != nil {
		return err
	}
	if room.hostID != requesterID {
		room.mu.Unlock()
		return ErrNotHost
	}
	g.finishRemoval(room, playerID, true)
	return nil
}

// HandleDisconnect is wired to the subscribe transport: a dropped
// connection counts as a leave, as in the original server.
func (g *Registry) HandleDisconnect(name, playerID string) {
	if err := g.Leave(name, playerID); err != nil {
		return
	}
	log.Info().Str("room", name).Str("player", playerID).Msg("player removed after disconnect")
}

// finishRemoval takes ownership of the held room lock, removes the player,
// handles host succession and room teardown, and emits the fallout after
// unlocking.
func (g *Registry) finishRemoval(room *Room, playerID string, kicked bool) {
	idx := -1
	for i, p := range room.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		room.mu.Unlock()
		return
	}

	room.players = append(room.players[:idx], room.players[idx+1:]...)

	empty := len(room.players) == 0
	if empty {
		room.stopCountdownLocked()
	} else if room.hostID == playerID {
		room.hostID = room.players[0].ID
		log.Info().Str("room", room.name).Str("host", room.players[0].Name).Msg("host privilege transferred")
	}

	// A shrunken roster can complete the vote on its own.
	resolveNow := !empty && room.phase == PhaseVoting && len(room.votes) >= len(room.players)

	// Emitted with mu held so a racing removal cannot publish a newer
	// roster ahead of this one.
	if kicked {
		g.sink.ToRoom(room.name, EventPlayerKicked, playerID)
	}
	if !empty {
		g.sink.ToRoom(room.name, EventRoomUpdated, RosterUpdate{Players: room.rosterLocked(), HostID: room.hostID})
	}
	room.mu.Unlock()

	if empty {
		g.dropIfEmpty(room)
	}
	g.emitRoomList()

	if resolveNow {
		g.resolveRound(room)
	}
}

// dropIfEmpty deletes the room from the table unless a concurrent join
// repopulated it in the window after the removal.
func (g *Registry) dropIfEmpty(room *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.players) > 0 {
		return
	}
	room.stopCountdownLocked()
	if current, ok := g.rooms[room.name]; ok && current == room {
		delete(g.rooms, room.name)
		log.Info().Str("room", room.name).Msg("empty room removed")
	}
}

// RoomExists reports whether a room is registered. Used by the subscribe
// transport before accepting a connection.
func (g *Registry) RoomExists(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[name]
	return ok
}

// ListRooms returns name + player count summaries, sorted by name.
func (g *Registry) ListRooms() []RoomSummary {
	g.mu.RLock()
	summaries := make([]RoomSummary, 0, len(g.rooms))
	for _, room := range g.rooms {
		room.mu.Lock()
		summaries = append(summaries, RoomSummary{Name: room.name, PlayersCount: len(room.players)})
		room.mu.Unlock()
	}
	g.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}

func (g *Registry) emitRoomList() {
	g.sink.ToAll(EventRoomsUpdated, g.ListRooms())
}

// StartSweep launches the periodic idle-room reclamation until ctx is
// cancelled. The interval comes from the settings current at launch.
func (g *Registry) StartSweep(ctx context.Context) {
	interval := g.provider.Settings().CleanupInterval()
	ticks, stop := g.tickers.Create(interval)
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				g.SweepOnce()
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("idle sweep started")
}

// SweepOnce removes empty rooms and rooms whose roster is non-empty but
// whose transport presence has vanished. The roster is not preserved:
// everyone disconnecting without a clean leave forfeits the room. Returns
// the number of rooms removed.
func (g *Registry) SweepOnce() int {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.RUnlock()

	removed := 0
	for _, room := range rooms {
		room.mu.Lock()
		populated := len(room.players)
		room.mu.Unlock()

		if populated > 0 && g.presence.LiveConnections(room.name) > 0 {
			continue
		}

		g.mu.Lock()
		if current, ok := g.rooms[room.name]; ok && current == room {
			room.mu.Lock()
			room.stopCountdownLocked()
			room.mu.Unlock()
			delete(g.rooms, room.name)
			removed++
			log.Info().Str("room", room.name).Int("players", populated).Msg("idle room removed")
		}
		g.mu.Unlock()
	}

	if removed > 0 {
		log.Info().Int("rooms", removed).Msg("idle sweep pass finished")
		g.emitRoomList()
	}
	return removed
}

func (g *Registry) newPin() string {
	return fmt.Sprintf("%d", 1000+g.rng.Intn(9000))
}
