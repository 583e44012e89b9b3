package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BROWN1213/picknic/internal/config"
	"github.com/BROWN1213/picknic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVoteService(ledger *fakeLedger, index *fakeIndex, limiter RateLimiter) *VoteService {
	return NewVoteService(ledger, index, limiter, config.LimitsConfig{
		VotesPerDay: 3,
		PollsPerDay: 2,
	})
}

func TestCastVoteHappyPath(t *testing.T) {
	ledger := newFakeLedger()
	index := newFakeIndex()
	limiter := &fakeLimiter{}
	svc := newVoteService(ledger, index, limiter)

	poll := ledger.addPoll("best lunch menu", "떡볶이", "돈까스")
	optionID := poll.Options[0].ID

	record, err := svc.CastVote(context.Background(), "alice@school.kr", poll.ID, models.CastVoteRequest{OptionID: optionID})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, optionID, record.SelectedOptionID)

	// Ledger counters moved together with the record.
	got, err := ledger.FindByIDWithOptions(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalVotes)
	assert.Equal(t, 1, got.Options[0].VoteCount)
	assert.Equal(t, 0, got.Options[1].VoteCount)

	// Points were mirrored into the leaderboard index.
	score, ok, err := index.ScoreOf(context.Background(), LeaderboardKey, "alice@school.kr")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(voteRewardPoints), score)
	assert.Equal(t, 1, limiter.calls)
}

func TestCastVoteSecondAttemptRejected(t *testing.T) {
	ledger := newFakeLedger()
	index := newFakeIndex()
	svc := newVoteService(ledger, index, &fakeLimiter{})

	poll := ledger.addPoll("p", "a", "b")
	req := models.CastVoteRequest{OptionID: poll.Options[0].ID}

	_, err := svc.CastVote(context.Background(), "u@school.kr", poll.ID, req)
	require.NoError(t, err)

	_, err = svc.CastVote(context.Background(), "u@school.kr", poll.ID, req)
	assert.ErrorIs(t, err, models.ErrAlreadyVoted)
	assert.Equal(t, 1, index.incrCalls, "no points for a rejected vote")

	got, _ := ledger.FindByIDWithOptions(context.Background(), poll.ID)
	assert.Equal(t, 1, got.TotalVotes)
}

func TestCastVoteConcurrentAttemptsKeepOneRecord(t *testing.T) {
	ledger := newFakeLedger()
	index := newFakeIndex()
	limiter := NewRateLimiter(newFakeCounterStore())
	svc := NewVoteService(ledger, index, limiter, config.LimitsConfig{
		VotesPerDay: 100,
		PollsPerDay: 5,
	})

	poll := ledger.addPoll("p", "a", "b")
	req := models.CastVoteRequest{OptionID: poll.Options[0].ID}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), "u@school.kr", poll.ID, req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrAlreadyVoted):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one attempt wins")
	assert.Equal(t, attempts-1, rejected)

	got, _ := ledger.FindByIDWithOptions(context.Background(), poll.ID)
	assert.Equal(t, 1, got.TotalVotes)
	assert.Equal(t, 1, got.Options[0].VoteCount)

	records, err := ledger.ListVoteRecords(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCastVoteClosedPoll(t *testing.T) {
	ledger := newFakeLedger()
	svc := newVoteService(ledger, newFakeIndex(), &fakeLimiter{})

	poll := ledger.addPoll("p", "a", "b")
	require.NoError(t, ledger.Close(context.Background(), poll.ID))

	_, err := svc.CastVote(context.Background(), "u@school.kr", poll.ID, models.CastVoteRequest{OptionID: poll.Options[0].ID})
	assert.ErrorIs(t, err, models.ErrPollClosed)
}

func TestCastVoteExpiredPoll(t *testing.T) {
	ledger := newFakeLedger()
	svc := newVoteService(ledger, newFakeIndex(), &fakeLimiter{})

	poll := ledger.addPoll("p", "a", "b")
	past := time.Now().Add(-time.Hour)
	poll.ExpiresAt = &past

	_, err := svc.CastVote(context.Background(), "u@school.kr", poll.ID, models.CastVoteRequest{OptionID: poll.Options[0].ID})
	assert.ErrorIs(t, err, models.ErrPollClosed)
}

func TestCastVoteUnknownPollAndOption(t *testing.T) {
	ledger := newFakeLedger()
	svc := newVoteService(ledger, newFakeIndex(), &fakeLimiter{})

	_, err := svc.CastVote(context.Background(), "u@school.kr", 999, models.CastVoteRequest{OptionID: 1})
	assert.ErrorIs(t, err, models.ErrPollNotFound)

	poll := ledger.addPoll("p", "a", "b")
	_, err = svc.CastVote(context.Background(), "u@school.kr", poll.ID, models.CastVoteRequest{OptionID: 999})
	assert.ErrorIs(t, err, models.ErrOptionNotFound)
}

func TestCastVoteOverDailyLimit(t *testing.T) {
	ledger := newFakeLedger()
	index := newFakeIndex()
	limiter := &fakeLimiter{count: 3} // next Consume returns 4, over the limit of 3
	svc := newVoteService(ledger, index, limiter)

	poll := ledger.addPoll("p", "a", "b")
	_, err := svc.CastVote(context.Background(), "u@school.kr", poll.ID, models.CastVoteRequest{OptionID: poll.Options[0].ID})

	assert.ErrorIs(t, err, models.ErrLimitExceeded)
	assert.Equal(t, 0, ledger.castCalls, "rejected before any ledger write")
	assert.Equal(t, 0, index.incrCalls)
}

func TestCastVoteLimiterDownFailsClosed(t *testing.T) {
	ledger := newFakeLedger()
	limiter := &fakeLimiter{err: errors.New("redis: connection refused")}
	svc := newVoteService(ledger, newFakeIndex(), limiter)

	poll := ledger.addPoll("p", "a", "b")
	_, err := svc.CastVote(context.Background(), "u@school.kr", poll.ID, models.CastVoteRequest{OptionID: poll.Options[0].ID})

	assert.ErrorIs(t, err, models.ErrLimiterUnavailable)
	assert.Equal(t, 0, ledger.castCalls, "an unreachable limiter must not allow the vote")
}

func TestCastVoteIndexFailureDoesNotFailVote(t *testing.T) {
	ledger := newFakeLedger()
	index := newFakeIndex()
	index.failIncr = true
	svc := newVoteService(ledger, index, &fakeLimiter{})

	poll := ledger.addPoll("p", "a", "b")
	record, err := svc.CastVote(context.Background(), "u@school.kr", poll.ID, models.CastVoteRequest{OptionID: poll.Options[0].ID})

	require.NoError(t, err, "index trouble never rolls back a recorded vote")
	require.NotNil(t, record)
	assert.Equal(t, 1, index.incrCalls, "the increment was still attempted")

	got, _ := ledger.FindByIDWithOptions(context.Background(), poll.ID)
	assert.Equal(t, 1, got.TotalVotes)
}

func TestCreatePoll(t *testing.T) {
	ledger := newFakeLedger()
	limiter := &fakeLimiter{}
	svc := newVoteService(ledger, newFakeIndex(), limiter)

	poll, err := svc.CreatePoll(context.Background(), "creator@school.kr", models.CreatePollRequest{
		Title:   "favorite subject",
		Options: []string{"math", "music", "PE"},
	})
	require.NoError(t, err)
	assert.NotZero(t, poll.ID)
	assert.True(t, poll.IsActive)
	require.Len(t, poll.Options, 3)
	assert.Equal(t, "creator@school.kr", poll.CreatorID)
	assert.Equal(t, 1, limiter.calls)
}

func TestCreatePollOverDailyLimit(t *testing.T) {
	ledger := newFakeLedger()
	limiter := &fakeLimiter{count: 2} // next Consume returns 3, over the limit of 2
	svc := newVoteService(ledger, newFakeIndex(), limiter)

	_, err := svc.CreatePoll(context.Background(), "creator@school.kr", models.CreatePollRequest{
		Title:   "t",
		Options: []string{"a", "b"},
	})
	assert.ErrorIs(t, err, models.ErrLimitExceeded)
}

func TestClosePollOnlyByCreator(t *testing.T) {
	ledger := newFakeLedger()
	svc := newVoteService(ledger, newFakeIndex(), &fakeLimiter{})

	poll := ledger.addPoll("p", "a", "b") // creator@example.com

	err := svc.ClosePoll(context.Background(), "stranger@school.kr", poll.ID)
	assert.ErrorIs(t, err, models.ErrNotPollCreator)

	err = svc.ClosePoll(context.Background(), "creator@example.com", poll.ID)
	require.NoError(t, err)

	got, _ := ledger.FindByIDWithOptions(context.Background(), poll.ID)
	assert.False(t, got.IsActive)
}
