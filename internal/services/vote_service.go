package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BROWN1213/picknic/internal/config"
	"github.com/BROWN1213/picknic/internal/models"
	"github.com/BROWN1213/picknic/internal/repositories/postgres"
)

// Points fed into the leaderboard index per successful vote. The durable
// point ledger lives elsewhere; this service only mirrors earned points
// into the ranking index.
const voteRewardPoints = 10

// VoteService orchestrates poll creation and vote casting. A cast moves
// through validation (quota, then ledger-detectable violations inside the
// cast transaction), the single atomic ledger write, and a best-effort
// index update. Only the ledger write is consistency-critical; the index
// may briefly lag behind it.
type VoteService struct {
	polls   postgres.PollRepository
	index   ScoreIndex
	limiter RateLimiter
	limits  config.LimitsConfig
}

func NewVoteService(polls postgres.PollRepository, index ScoreIndex, limiter RateLimiter, limits config.LimitsConfig) *VoteService {
	return &VoteService{
		polls:   polls,
		index:   index,
		limiter: limiter,
		limits:  limits,
	}
}

// consumeQuota burns one unit of the user's daily quota for the action
// and rejects when over the limit. A limiter store failure rejects too:
// an unreachable limiter must not grant unlimited actions.
func (s *VoteService) consumeQuota(ctx context.Context, userID, action string, limit int) error {
	now := time.Now()
	count, err := s.limiter.Consume(ctx, DailyKey(userID, action, now), UntilDayEnd(now))
	if err != nil {
		slog.Error("rate limiter unreachable, rejecting action", "userID", userID, "action", action, "error", err)
		return fmt.Errorf("%w: %v", models.ErrLimiterUnavailable, err)
	}
	if count > int64(limit) {
		return models.ErrLimitExceeded
	}
	return nil
}

func (s *VoteService) CreatePoll(ctx context.Context, userID string, req models.CreatePollRequest) (*models.Poll, error) {
	if err := s.consumeQuota(ctx, userID, ActionCreatePoll, s.limits.PollsPerDay); err != nil {
		return nil, err
	}

	poll := &models.Poll{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatorID:   userID,
		Category:    req.Category,
		SchoolName:  req.SchoolName,
		ExpiresAt:   req.ExpiresAt,
		IsActive:    true,
	}
	for _, text := range req.Options {
		poll.Options = append(poll.Options, models.Option{Text: text})
	}

	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}

	slog.Info("poll created", "pollID", poll.ID, "creator", userID)
	return poll, nil
}

// CastVote records one user's vote. The unique (poll, user) constraint
// inside the cast transaction is the authoritative double-vote guard; any
// earlier existence check is advisory only. The point-index update runs
// after commit and never fails the request.
func (s *VoteService) CastVote(ctx context.Context, userID string, pollID uint, req models.CastVoteRequest) (*models.VoteRecord, error) {
	if err := s.consumeQuota(ctx, userID, ActionVote, s.limits.VotesPerDay); err != nil {
		return nil, err
	}

	record, err := s.polls.CastVote(ctx, pollID, userID, req.OptionID)
	if err != nil {
		return nil, err
	}

	// Fire-and-forget: IncrementScore logs and swallows store failures.
	s.index.IncrementScore(ctx, LeaderboardKey, userID, voteRewardPoints)

	return record, nil
}

func (s *VoteService) GetPoll(ctx context.Context, pollID uint) (*models.Poll, error) {
	return s.polls.FindByIDWithOptions(ctx, pollID)
}

func (s *VoteService) ListActivePolls(ctx context.Context) ([]models.Poll, error) {
	return s.polls.FindActive(ctx, time.Now())
}

func (s *VoteService) ListMyPolls(ctx context.Context, userID string) ([]models.Poll, error) {
	return s.polls.FindByCreator(ctx, userID)
}

// MyVote returns the user's vote record for the poll, or nil when the
// user has not voted.
func (s *VoteService) MyVote(ctx context.Context, userID string, pollID uint) (*models.VoteRecord, error) {
	return s.polls.FindVoteRecord(ctx, pollID, userID)
}

// ClosePoll flips the poll inactive. Only the creator may close it here;
// system accounts go through the admin surface.
func (s *VoteService) ClosePoll(ctx context.Context, userID string, pollID uint) error {
	poll, err := s.polls.FindByIDWithOptions(ctx, pollID)
	if err != nil {
		return err
	}
	if poll.CreatorID != userID {
		return models.ErrNotPollCreator
	}
	return s.polls.Close(ctx, pollID)
}
