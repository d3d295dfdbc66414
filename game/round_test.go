package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRoom creates a room and fills it to the requested size. Player ids
// are p1 (host), p2, p3, ...
func setupRoom(t *testing.T, f *fixture, name string, size int) {
	t.Helper()
	names := []string{"Levente", "Anna", "Béla", "Cili", "Dénes", "Emese"}
	view, err := f.registry.CreateRoom(name, names[0])
	require.NoError(t, err)
	for i := 1; i < size; i++ {
		_, _, err := f.registry.JoinRoom(name, view.Pin, names[i])
		require.NoError(t, err)
	}
}

// toVoting starts the round and drives the countdown to zero.
func toVoting(t *testing.T, f *fixture, name string, gameTime int) {
	t.Helper()
	require.NoError(t, f.registry.Start(name))
	for i := 0; i < gameTime; i++ {
		f.ticker.tick()
	}
	require.Eventually(t, func() bool {
		return f.sink.count(EventVotingStarted) > 0
	}, time.Second, time.Millisecond)
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("one impostor, everyone else shares the word", func(t *testing.T) {
		// draws: pin, word index 1, impostor index 2
		f := newFixture(testSettings(3, 10, 120), []int{7, 1, 2}, true)
		setupRoom(t, f, "kert", 3)

		require.NoError(t, f.registry.Start("kert"))

		deals := f.sink.byEvent(EventGameStarted)
		require.Len(t, deals, 3)

		byPlayer := map[string]WordDeal{}
		for _, e := range deals {
			assert.Equal(t, "kert", e.Room)
			byPlayer[e.Player] = e.Payload.(WordDeal)
		}
		assert.Equal(t, "MACSKA", byPlayer["p1"].Word)
		assert.Equal(t, "MACSKA", byPlayer["p2"].Word)
		assert.Equal(t, ImpostorWord, byPlayer["p3"].Word)
		assert.Equal(t, 120, byPlayer["p1"].GameTime)
		assert.Len(t, byPlayer["p1"].Players, 3)
	})

	t.Run("broadcast mode deals the whole mapping to the room", func(t *testing.T) {
		f := newFixture(testSettings(3, 10, 120), []int{7, 0, 0}, false)
		setupRoom(t, f, "kert", 3)

		require.NoError(t, f.registry.Start("kert"))

		deals := f.sink.byEvent(EventGameStarted)
		require.Len(t, deals, 1)
		assert.Empty(t, deals[0].Player)

		full := deals[0].Payload.(FullDeal)
		require.Len(t, full.Players, 3)
		assert.Equal(t, ImpostorWord, full.Players[0].Word)
		assert.Equal(t, "KUTYA", full.Players[1].Word)
		assert.Equal(t, "KUTYA", full.Players[2].Word)
	})

	t.Run("not enough players", func(t *testing.T) {
		f := newFixture(testSettings(3, 10, 120), nil, true)
		setupRoom(t, f, "kert", 2)
		assert.ErrorIs(t, f.registry.Start("kert"), ErrNotEnoughPlayers)
	})

	t.Run("second start is rejected", func(t *testing.T) {
		f := newFixture(testSettings(3, 10, 120), nil, true)
		setupRoom(t, f, "kert", 3)
		require.NoError(t, f.registry.Start("kert"))
		assert.ErrorIs(t, f.registry.Start("kert"), ErrInProgress)
	})

	t.Run("unknown room", func(t *testing.T) {
		f := newFixture(testSettings(3, 10, 120), nil, true)
		assert.ErrorIs(t, f.registry.Start("nincs"), ErrRoomNotFound)
	})
}

func TestCountdown(t *testing.T) {
	t.Parallel()

	t.Run("reaching zero starts voting exactly once", func(t *testing.T) {
		f := newFixture(testSettings(3, 10, 2), nil, true)
		setupRoom(t, f, "udvar", 3)
		require.NoError(t, f.registry.Start("udvar"))

		f.ticker.tick()
		require.Eventually(t, func() bool {
			return f.sink.count(EventTimer) == 1
		}, time.Second, time.Millisecond)
		first, _ := f.sink.last(EventTimer)
		assert.Equal(t, 1, first.Payload)

		f.ticker.tick()
		require.Eventually(t, func() bool {
			return f.sink.count(EventVotingStarted) == 1
		}, time.Second, time.Millisecond)
		last, _ := f.sink.last(EventTimer)
		assert.Equal(t, 0, last.Payload)

		// Voting is live now, the countdown is gone.
		require.NoError(t, f.registry.CastVote("udvar", "p1", "p2"))
		require.Eventually(t, func() bool {
			return f.ticker.stopped() == 1
		}, time.Second, time.Millisecond)
	})

	t.Run("cancelled when the room empties", func(t *testing.T) {
		f := newFixture(testSettings(2, 10, 120), nil, true)
		setupRoom(t, f, "udvar", 2)
		require.NoError(t, f.registry.Start("udvar"))

		require.NoError(t, f.registry.Leave("udvar", "p1"))
		require.NoError(t, f.registry.Leave("udvar", "p2"))

		assert.False(t, f.registry.RoomExists("udvar"))
		require.Eventually(t, func() bool {
			return f.ticker.stopped() == 1
		}, time.Second, time.Millisecond)
	})
}

func TestCastVote(t *testing.T) {
	t.Parallel()

	t.Run("rejected outside the voting phase", func(t *testing.T) {
		f := newFixture(testSettings(3, 10, 120), nil, true)
		setupRoom(t, f, "pitvar", 3)

		assert.ErrorIs(t, f.registry.CastVote("pitvar", "p1", "p2"), ErrVotingNotActive)

		require.NoError(t, f.registry.Start("pitvar"))
		assert.ErrorIs(t, f.registry.CastVote("pitvar", "p1", "p2"), ErrVotingNotActive)
	})

	t.Run("last write wins per voter", func(t *testing.T) {
		f := newFixture(testSettings(3, 10, 1), nil, true)
		setupRoom(t, f, "pitvar", 3)
		toVoting(t, f, "pitvar", 1)

		require.NoError(t, f.registry.CastVote("pitvar", "p1", "p2"))
		require.NoError(t, f.registry.CastVote("pitvar", "p1", "p3"))

		update, ok := f.sink.last(EventVotesUpdated)
		require.True(t, ok)
		assert.Empty(t, cmp.Diff(map[string]int{"p3": 1}, update.Payload))
	})

	t.Run("full participation ends the round", func(t *testing.T) {
		// draws: pin, word 0, impostor index 2 -> p3
		f := newFixture(testSettings(3, 10, 1), []int{7, 0, 2}, true)
		setupRoom(t, f, "pitvar", 3)
		toVoting(t, f, "pitvar", 1)

		require.NoError(t, f.registry.CastVote("pitvar", "p1", "p3"))
		require.NoError(t, f.registry.CastVote("pitvar", "p2", "p3"))
		assert.Zero(t, f.sink.count(EventGameEnded))

		require.NoError(t, f.registry.CastVote("pitvar", "p3", "p1"))

		ended, ok := f.sink.last(EventGameEnded)
		require.True(t, ok)
		result := ended.Payload.(RoundResult)
		assert.Equal(t, "p3", result.ImpostorID)
		assert.True(t, result.ImpostorCaught)
		assert.Empty(t, cmp.Diff(map[string]int{"p3": 2, "p1": 1}, result.VoteCount))

		assert.ErrorIs(t, f.registry.CastVote("pitvar", "p1", "p2"), ErrVotingNotActive)
	})

	t.Run("leaver completes the round for the rest", func(t *testing.T) {
		// draws: pin, word 0, impostor index 1 -> p2
		f := newFixture(testSettings(3, 10, 1), []int{7, 0, 1}, true)
		setupRoom(t, f, "pitvar", 4)
		toVoting(t, f, "pitvar", 1)

		require.NoError(t, f.registry.CastVote("pitvar", "p1", "p2"))
		require.NoError(t, f.registry.CastVote("pitvar", "p2", "p1"))
		require.NoError(t, f.registry.CastVote("pitvar", "p4", "p2"))
		assert.Zero(t, f.sink.count(EventGameEnded))

		// p3 never votes; their leave satisfies full participation.
		require.NoError(t, f.registry.Leave("pitvar", "p3"))

		ended, ok := f.sink.last(EventGameEnded)
		require.True(t, ok)
		result := ended.Payload.(RoundResult)
		assert.Equal(t, "p2", result.ImpostorID)
		assert.True(t, result.ImpostorCaught)
	})

	t.Run("concurrent voters never publish a stale tally", func(t *testing.T) {
		// A sink that dawdles inside every emission widens the window in
		// which a racing vote could overtake an older tally.
		sink := &laggySink{delay: time.Millisecond}
		ticker := newManualTicker()
		provider := &stubProvider{
			words:    []string{"KUTYA", "MACSKA", "ELEFÁNT"},
			settings: testSettings(3, 10, 1),
		}
		f := &fixture{
			registry: NewRegistry(provider, sink, newStubPresence(), &seqIDs{}, &seqRand{}, ticker, true),
			sink:     &sink.recordingSink,
			presence: newStubPresence(),
			rng:      &seqRand{},
			ticker:   ticker,
		}
		setupRoom(t, f, "pitvar", 3)
		toVoting(t, f, "pitvar", 1)

		var wg sync.WaitGroup
		for _, voterID := range []string{"p1", "p2", "p3"} {
			wg.Add(1)
			go func(voterID string) {
				defer wg.Done()
				assert.NoError(t, f.registry.CastVote("pitvar", voterID, "p1"))
			}(voterID)
		}
		wg.Wait()

		updates := sink.byEvent(EventVotesUpdated)
		require.Len(t, updates, 3)
		prev := 0
		for _, update := range updates {
			total := 0
			for _, n := range update.Payload.(map[string]int) {
				total += n
			}
			assert.GreaterOrEqual(t, total, prev)
			prev = total
		}
		assert.Equal(t, 3, prev)

		// gameEnded is the last room event, after every votesUpdated.
		events := sink.all()
		lastTally, ended := -1, -1
		for i, e := range events {
			switch e.Event {
			case EventVotesUpdated:
				lastTally = i
			case EventGameEnded:
				ended = i
			}
		}
		require.NotEqual(t, -1, ended)
		assert.Greater(t, ended, lastTally)
	})

	t.Run("removing the impostor invalidates the round", func(t *testing.T) {
		// draws: pin, word 0, impostor index 1 -> p2
		f := newFixture(testSettings(3, 10, 1), []int{7, 0, 1}, true)
		setupRoom(t, f, "pitvar", 4)
		toVoting(t, f, "pitvar", 1)

		require.NoError(t, f.registry.Kick("pitvar", "p2", "p1"))

		require.NoError(t, f.registry.CastVote("pitvar", "p1", "p3"))
		require.NoError(t, f.registry.CastVote("pitvar", "p3", "p1"))
		require.NoError(t, f.registry.CastVote("pitvar", "p4", "p3"))

		assert.Zero(t, f.sink.count(EventGameEnded))
		invalidated, ok := f.sink.last(EventRoundInvalidated)
		require.True(t, ok)
		assert.Equal(t, "pitvar", invalidated.Room)

		assert.ErrorIs(t, f.registry.CastVote("pitvar", "p1", "p3"), ErrVotingNotActive)
	})
}

func TestImpostorCaught(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		desc     string
		tally    map[string]int
		impostor string
		caught   bool
	}{
		{
			desc:     "no votes cast",
			tally:    map[string]int{},
			impostor: "p3",
			caught:   false,
		},
		{
			desc:     "unique leader is the impostor",
			tally:    map[string]int{"p3": 3, "p1": 1},
			impostor: "p3",
			caught:   true,
		},
		{
			desc:     "unique leader is innocent",
			tally:    map[string]int{"p1": 3, "p3": 1},
			impostor: "p3",
			caught:   false,
		},
		{
			desc:     "tie including the impostor counts as caught",
			tally:    map[string]int{"x": 1, "y": 1},
			impostor: "x",
			caught:   true,
		},
		{
			desc:     "tie without the impostor",
			tally:    map[string]int{"p1": 2, "p2": 2, "p3": 1},
			impostor: "p3",
			caught:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.caught, impostorCaught(tc.tally, tc.impostor))
		})
	}
}
