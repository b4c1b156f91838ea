package session

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
	"github.com/DoyleJ11/playerid-backend/internal/engine"
	"github.com/DoyleJ11/playerid-backend/internal/records"
	"github.com/DoyleJ11/playerid-backend/internal/store"
)

var today = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func testCatalog() []catalog.Player {
	level := func(d catalog.Difficulty) *catalog.DifficultyInfo { return &catalog.DifficultyInfo{Level: d} }
	return []catalog.Player{
		{Name: "Lionel Messi", Difficulty: level(catalog.DifficultyEasy)},
		{Name: "Kylian Mbappe", Difficulty: level(catalog.DifficultyEasy)},
		{Name: "Thierry Henry", Difficulty: level(catalog.DifficultyMedium)},
		{Name: "Romelu Lukaku", Difficulty: level(catalog.DifficultyHard)},
		{Name: "Radamel Falcao", Difficulty: level(catalog.DifficultyHard)},
		{Name: "Mario Balotelli", Difficulty: level(catalog.DifficultyHard)},
	}
}

type fixture struct {
	s     *Session
	store *store.Memory
	keep  *records.Keeper
}

func newFixture(t *testing.T, players []catalog.Player, opts Options) fixture {
	t.Helper()
	mem := store.NewMemory()
	return newFixtureWithStore(t, players, opts, mem)
}

func newFixtureWithStore(t *testing.T, players []catalog.Player, opts Options, mem *store.Memory) fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	keep := records.NewKeeper(mem, logger, time.Second)
	keep.Load(context.Background())
	if opts.FeedbackDelay == 0 {
		opts.FeedbackDelay = time.Hour
	}
	s := New(context.Background(), Deps{
		Catalog: players,
		Records: keep,
		Logger:  logger,
		Rand:    rand.New(rand.NewPCG(1, 2)),
		Now:     func() time.Time { return today },
	}, opts)
	t.Cleanup(s.Close)
	return fixture{s: s, store: mem, keep: keep}
}

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
	}
}

func guessRight(t *testing.T, s *Session, snap Snapshot) Snapshot {
	t.Helper()
	ctx := context.Background()
	require.NotNil(t, snap.State.Player)
	_, err := s.SelectSuggestion(ctx, snap.State.Player.Name)
	require.NoError(t, err)
	next, err := s.Submit(ctx)
	require.NoError(t, err)
	return next
}

func guessWrong(t *testing.T, s *Session) Snapshot {
	t.Helper()
	ctx := context.Background()
	_, err := s.InputChange(ctx, "Nobody At All")
	require.NoError(t, err)
	next, err := s.Submit(ctx)
	require.NoError(t, err)
	return next
}

func TestSession_Start_DrawsFromFilteredPoolAndBroadcasts(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	out := make(chan Snapshot, 4)
	require.NoError(t, f.s.Join(ctx, "c1", out))
	first := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.PhaseIdle, first.State.Phase)

	snap, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyHard)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, engine.PhaseInRound, snap.State.Phase)
	assert.Equal(t, catalog.DifficultyHard, snap.State.Player.Level())
	assert.Equal(t, engine.DefaultTotalRounds, snap.State.TotalRounds)
	assert.True(t, snap.RoundDeadline.IsZero())

	pushed := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, snap.Version, pushed.Version)
}

func TestSession_Start_EmptyPool(t *testing.T) {
	players := testCatalog()[:2] // easy only
	f := newFixture(t, players, Options{})

	snap, err := f.s.Start(context.Background(), engine.VariantSurvival, catalog.DifficultyHard)
	require.ErrorIs(t, err, engine.ErrEmptyPool)
	assert.Equal(t, engine.PhaseEmptyPool, snap.State.Phase)
	assert.Nil(t, snap.State.Player)
}

func TestSession_Start_UnknownVariant(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	snap, err := f.s.Start(context.Background(), "marathon", catalog.DifficultyAny)
	require.ErrorIs(t, err, engine.ErrUnknownVariant)
	assert.Equal(t, 0, snap.Version)
}

func TestSession_InvalidIntentIsNoOp(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	snap, err := f.s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Version)
	assert.Equal(t, engine.PhaseIdle, snap.State.Phase)

	snap, err = f.s.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Version)
}

func TestSession_InputSuggestions(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{SuggestionLimit: 6})
	ctx := context.Background()
	_, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyAny)
	require.NoError(t, err)

	snap, err := f.s.InputChange(ctx, "mes")
	require.NoError(t, err)
	assert.Equal(t, "mes", snap.State.Guess)
	assert.Equal(t, []string{"Lionel Messi"}, snap.State.Suggestions)
	assert.True(t, snap.State.SuggestionsVisible)

	snap, err = f.s.SelectSuggestion(ctx, "Lionel Messi")
	require.NoError(t, err)
	assert.Equal(t, "Lionel Messi", snap.State.Guess)
	assert.False(t, snap.State.SuggestionsVisible)

	snap, err = f.s.Focus(ctx)
	require.NoError(t, err)
	assert.True(t, snap.State.SuggestionsVisible)
}

func TestSession_ClassicHard_ScoresAndFinishes(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{TotalRounds: 2})
	ctx := context.Background()

	snap, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyHard)
	require.NoError(t, err)
	first := snap.State.Player.Name

	snap = guessRight(t, f.s, snap)
	assert.Equal(t, engine.PhaseCorrect, snap.State.Phase)
	assert.Equal(t, 3, snap.State.Score)

	snap, err = f.s.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseInRound, snap.State.Phase)
	assert.Equal(t, 1, snap.State.RoundIndex)
	assert.NotEqual(t, first, snap.State.Player.Name, "no repeats while the pool lasts")

	snap = guessRight(t, f.s, snap)
	assert.Equal(t, 6, snap.State.Score)

	snap, err = f.s.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFinished, snap.State.Phase)
	assert.Equal(t, 2, snap.State.RoundIndex)
	assert.Equal(t, 6, snap.State.Score)
}

func TestSession_FeedbackDelayAutoAdvances(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{TotalRounds: 3, FeedbackDelay: 20 * time.Millisecond})
	ctx := context.Background()

	out := make(chan Snapshot, 8)
	require.NoError(t, f.s.Join(ctx, "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	_, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyAny)
	require.NoError(t, err)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	wrong := guessWrong(t, f.s)
	assert.Equal(t, engine.PhaseIncorrect, wrong.State.Phase)
	assert.True(t, strings.HasPrefix(wrong.State.Feedback, engine.FeedbackWrong))
	_ = recvSnapshot(t, out, 100*time.Millisecond) // input
	_ = recvSnapshot(t, out, 100*time.Millisecond) // submit

	next := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, engine.PhaseInRound, next.State.Phase)
	assert.Equal(t, 1, next.State.RoundIndex)
	assert.Equal(t, wrong.Version+1, next.Version)
}

func TestSession_ManualAdvanceDropsStaleTimer(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{TotalRounds: 5, FeedbackDelay: 100 * time.Millisecond})
	ctx := context.Background()

	snap, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyAny)
	require.NoError(t, err)
	guessRight(t, f.s, snap)

	advanced, err := f.s.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, engine.PhaseInRound, advanced.State.Phase)

	time.Sleep(250 * time.Millisecond)
	now, err := f.s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, advanced.Version, now.Version, "the armed feedback timer must not advance again")
	assert.Equal(t, 1, now.State.RoundIndex)
}

func TestSession_RoundTimeLimit(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{RoundTimeLimit: 30 * time.Millisecond})
	ctx := context.Background()

	out := make(chan Snapshot, 8)
	require.NoError(t, f.s.Join(ctx, "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	snap, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyAny)
	require.NoError(t, err)
	assert.Equal(t, today.Add(30*time.Millisecond), snap.RoundDeadline)
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	timedOut := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, engine.PhaseIncorrect, timedOut.State.Phase)
	assert.Equal(t, engine.FeedbackTimeUp+snap.State.Player.Name, timedOut.State.Feedback)
	assert.True(t, timedOut.RoundDeadline.IsZero())
}

func TestSession_Survival(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Set(context.Background(), store.HighScoreKey, "1"))
	f := newFixtureWithStore(t, testCatalog(), Options{}, mem)
	ctx := context.Background()

	snap, err := f.s.Start(ctx, engine.VariantSurvival, catalog.DifficultyAny)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.HighScore)

	snap = guessRight(t, f.s, snap)
	assert.Equal(t, 1, snap.State.Score)
	assert.Equal(t, 1, snap.State.HighScore, "tying is not beating")

	snap, err = f.s.Advance(ctx)
	require.NoError(t, err)
	snap = guessRight(t, f.s, snap)
	assert.Equal(t, 2, snap.State.HighScore)

	_, err = f.s.Advance(ctx)
	require.NoError(t, err)
	snap = guessWrong(t, f.s)
	assert.Equal(t, engine.PhaseFinished, snap.State.Phase)
	assert.Equal(t, 2, snap.State.Score)

	f.keep.Flush()
	v, ok, err := mem.Get(ctx, store.HighScoreKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestSession_Survival_StoreDownKeepsPlaying(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	f.store.Fail(assert.AnError)
	ctx := context.Background()

	snap, err := f.s.Start(ctx, engine.VariantSurvival, catalog.DifficultyAny)
	require.NoError(t, err)
	snap = guessRight(t, f.s, snap)
	f.keep.Flush()

	assert.Equal(t, 1, snap.State.HighScore)
	assert.Equal(t, 1, f.keep.HighScore())
}

func TestSession_Daily(t *testing.T) {
	players := testCatalog()
	f := newFixture(t, players, Options{})
	ctx := context.Background()

	snap, err := f.s.Start(ctx, engine.VariantDaily, catalog.DifficultyHard)
	require.NoError(t, err)
	idx, err := engine.DailyIndex("2024-03-15", len(players))
	require.NoError(t, err)
	assert.Equal(t, players[idx].Name, snap.State.Player.Name)
	assert.Equal(t, "2024-03-15", snap.State.DailyDate)
	assert.Equal(t, catalog.DifficultyAny, snap.State.Difficulty)

	snap = guessWrong(t, f.s)
	assert.Equal(t, engine.PhaseFinished, snap.State.Phase)
	f.keep.Flush()
	assert.True(t, f.keep.DailyDone(ctx, "2024-03-15"))

	snap, err = f.s.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFinished, snap.State.Phase)
	assert.Nil(t, snap.State.Player)
	assert.Equal(t, engine.FeedbackDailyDone, snap.State.Feedback)

	// the gate holds for a new session on the same store
	again := newFixtureWithStore(t, players, Options{}, f.store)
	snap, err = again.s.Start(ctx, engine.VariantDaily, catalog.DifficultyAny)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFinished, snap.State.Phase)
	assert.Nil(t, snap.State.Player)
}

func TestSession_Daily_RestartBeforeGateWriteLands(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	_, err := f.s.Start(ctx, engine.VariantDaily, catalog.DifficultyAny)
	require.NoError(t, err)
	guessWrong(t, f.s)

	snap, err := f.s.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFinished, snap.State.Phase)
	assert.Nil(t, snap.State.Player)
	assert.Equal(t, engine.FeedbackDailyDone, snap.State.Feedback)
}

func TestSession_Daily_FailedGateWriteStillBlocksReplay(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	snap, err := f.s.Start(ctx, engine.VariantDaily, catalog.DifficultyAny)
	require.NoError(t, err)
	f.store.Fail(assert.AnError)
	guessRight(t, f.s, snap)
	f.keep.Flush()

	snap, err = f.s.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseFinished, snap.State.Phase)
	assert.Nil(t, snap.State.Player)

	_, err = f.s.Submit(ctx)
	require.NoError(t, err)
	after, err := f.s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, after.State.Score, "no second scoring on the same day")
}

func TestSession_SelectUnknownNameIsNoOp(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	started, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyAny)
	require.NoError(t, err)

	snap, err := f.s.SelectSuggestion(ctx, "Zinedine Zidane")
	require.NoError(t, err)
	assert.Equal(t, started.Version, snap.Version)
	assert.Empty(t, snap.State.Guess)
}

func TestSession_RestartResetsScore(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	snap, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyMedium)
	require.NoError(t, err)
	snap = guessRight(t, f.s, snap)
	require.Equal(t, 2, snap.State.Score)

	snap, err = f.s.Restart(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseInRound, snap.State.Phase)
	assert.Equal(t, 0, snap.State.Score)
	assert.Equal(t, 0, snap.State.RoundIndex)
	assert.Equal(t, "Thierry Henry", snap.State.Player.Name, "only player in the medium band")
}

func TestSession_DropSlowClient(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	out := make(chan Snapshot, 1)
	require.NoError(t, f.s.Join(ctx, "c1", out)) // join snapshot fills the buffer

	_, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyAny)
	require.NoError(t, err)

	view, err := f.s.inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients)
}

func TestSession_LeaveClosesOutbox(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{})
	ctx := context.Background()

	out := make(chan Snapshot, 2)
	require.NoError(t, f.s.Join(ctx, "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	require.NoError(t, f.s.Leave(ctx, "c1"))

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("outbox not closed on leave")
	}
}

func TestSession_Close_StopsTimerNoFire(t *testing.T) {
	f := newFixture(t, testCatalog(), Options{FeedbackDelay: 50 * time.Millisecond})
	ctx := context.Background()

	out := make(chan Snapshot, 8)
	require.NoError(t, f.s.Join(ctx, "c1", out))

	snap, err := f.s.Start(ctx, engine.VariantClassic, catalog.DifficultyAny)
	require.NoError(t, err)
	guessRight(t, f.s, snap)

	f.s.Close()
	for range out {
		// drain what was sent before close; the channel must end closed
	}
	recvNoSnapshot(t, out, 150*time.Millisecond)

	_, err = f.s.Submit(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.s.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
