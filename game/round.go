package game

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Start deals roles and words, transitions the room to playing and launches
// the countdown. The phase check and the deal happen under one lock, so two
// concurrent starts can never both assign roles.
func (g *Registry) Start(name string) error {
	pool := g.provider.Words()
	settings := g.provider.Settings()
	if len(pool) == 0 {
		// The provider falls back to built-in words, so this only
		// happens with a misconfigured custom provider.
		log.Error().Str("room", name).Msg("empty word pool, using sentinel fallback word")
		pool = []string{"ALMA"}
	}

	room, err := g.lockRoom(name)
	if err != nil {
		return err
	}
	if room.phase != PhaseWaiting {
		room.mu.Unlock()
		return ErrInProgress
	}
	if len(room.players) < settings.MinPlayers {
		room.mu.Unlock()
		return ErrNotEnoughPlayers
	}

	secret := pool[g.rng.Intn(len(pool))]
	impostorIdx := g.rng.Intn(len(room.players))

	deals := make([]PlayerWord, 0, len(room.players))
	for i, p := range room.players {
		p.IsImpostor = i == impostorIdx
		if p.IsImpostor {
			p.Word = ImpostorWord
		} else {
			p.Word = secret
		}
		deals = append(deals, PlayerWord{ID: p.ID, Name: p.Name, Word: p.Word})
	}

	room.secret = secret
	room.votes = make(map[string]string)
	room.phase = PhasePlaying

	ctx, cancel := context.WithCancel(context.Background())
	room.stopCountdownLocked()
	room.cancelCountdown = cancel

	// Deals go out with mu held so a racing roster change cannot publish
	// ahead of them; the countdown starts only after they are queued.
	if g.privateWordDeals {
		roster := room.rosterLocked()
		for _, deal := range deals {
			g.sink.ToPlayer(name, deal.ID, EventGameStarted, WordDeal{
				Players:  roster,
				Word:     deal.Word,
				GameTime: settings.GameTime,
			})
		}
	} else {
		g.sink.ToRoom(name, EventGameStarted, FullDeal{Players: deals, GameTime: settings.GameTime})
	}

	ticks, stop := g.tickers.Create(time.Second)
	go g.runCountdown(ctx, room, settings.GameTime, ticks, stop)
	room.mu.Unlock()

	log.Info().Str("room", name).Int("players", len(deals)).Msg("game started")
	return nil
}

// runCountdown emits the remaining seconds once per tick and hands the room
// to the voting phase at zero. Cancellation through ctx stops it without
// touching the room again.
func (g *Registry) runCountdown(ctx context.Context, room *Room, seconds int, ticks <-chan time.Time, stop func()) {
	defer stop()
	remaining := seconds
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			remaining--
			g.sink.ToRoom(room.name, EventTimer, remaining)
			if remaining <= 0 {
				g.beginVoting(room)
				return
			}
		}
	}
}

func (g *Registry) beginVoting(room *Room) {
	room.mu.Lock()
	if room.phase != PhasePlaying {
		room.mu.Unlock()
		return
	}
	room.phase = PhaseVoting
	room.stopCountdownLocked()
	g.sink.ToRoom(room.name, EventVotingStarted, room.rosterLocked())
	room.mu.Unlock()

	log.Info().Str("room", room.name).Msg("voting started")
}

// CastVote records a vote, last write per voter wins. The round resolves as
// soon as every rostered player has voted; there is no voting timer.
func (g *Registry) CastVote(name, voterID, votedID string) error {
	room, err := g.lockRoom(name)
	if err != nil {
		return err
	}
	if room.phase != PhaseVoting {
		room.mu.Unlock()
		return ErrVotingNotActive
	}

	room.votes[voterID] = votedID
	// Emitted with mu held: a later vote's tally can never overtake this
	// one on the wire.
	g.sink.ToRoom(name, EventVotesUpdated, room.tallyLocked())
	complete := len(room.votes) >= len(room.players)
	room.mu.Unlock()

	if complete {
		g.resolveRound(room)
	}
	return nil
}

// resolveRound adjudicates the vote and ends the round. A roster without an
// impostor means an invariant was broken elsewhere (the impostor was removed
// mid-round); the round is invalidated instead of adjudicated.
func (g *Registry) resolveRound(room *Room) {
	room.mu.Lock()
	if room.phase != PhaseVoting {
		room.mu.Unlock()
		return
	}
	room.stopCountdownLocked()

	var impostor *Player
	for _, p := range room.players {
		if p.IsImpostor {
			impostor = p
			break
		}
	}

	if impostor == nil {
		room.phase = PhaseEnded
		g.sink.ToRoom(room.name, EventRoundInvalidated, RoundInvalidated{Reason: "impostor is no longer in the room"})
		room.mu.Unlock()
		log.Error().Str("room", room.name).Msg("round resolution with no impostor in roster, invalidating round")
		return
	}

	tally := room.tallyLocked()
	caught := impostorCaught(tally, impostor.ID)
	room.phase = PhaseEnded
	g.sink.ToRoom(room.name, EventGameEnded, RoundResult{
		ImpostorID:     impostor.ID,
		ImpostorCaught: caught,
		VoteCount:      tally,
	})
	room.mu.Unlock()

	log.Info().Str("room", room.name).Bool("caught", caught).Msg("game ended")
}

// impostorCaught applies the capture rule: no votes means not caught, a
// unique leader must be the impostor, and a tie at the maximum counts as
// caught if the impostor is among the tied leaders.
func impostorCaught(tally map[string]int, impostorID string) bool {
	if len(tally) == 0 {
		return false
	}
	maxVotes := 0
	for _, count := range tally {
		if count > maxVotes {
			maxVotes = count
		}
	}
	leaders := make([]string, 0, len(tally))
	for candidate, count := range tally {
		if count == maxVotes {
			leaders = append(leaders, candidate)
		}
	}
	return slices.Contains(leaders, impostorID)
}
