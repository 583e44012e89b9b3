package services

import (
	"context"
	"log/slog"

	"github.com/BROWN1213/picknic/internal/models"
	"github.com/BROWN1213/picknic/internal/repositories/postgres"
)

// Polls above this total count as "hot" in the admin listing.
const hotPollThreshold = 1000

// AggregateService restores the totalVotes == sum(option.voteCount)
// invariant from the raw vote records, and hosts the privileged
// operations built on top of that: full recalculation, invalid-user
// cleanup and manual counter edits. Every operation checks that the
// caller is a system account; authenticating that caller is the request
// layer's job.
type AggregateService struct {
	polls postgres.PollRepository
	users postgres.UserRepository
}

func NewAggregateService(polls postgres.PollRepository, users postgres.UserRepository) *AggregateService {
	return &AggregateService{polls: polls, users: users}
}

func (s *AggregateService) requireSystemAccount(ctx context.Context, callerID string) error {
	caller, err := s.users.FindByEmail(ctx, callerID)
	if err != nil {
		return err
	}
	if !caller.IsSystemAccount {
		return models.ErrNotSystemAccount
	}
	return nil
}

// RecalculatePoll recomputes one poll's counters from its records.
func (s *AggregateService) RecalculatePoll(ctx context.Context, callerID string, pollID uint) (*models.RecalcStats, error) {
	if err := s.requireSystemAccount(ctx, callerID); err != nil {
		return nil, err
	}
	return s.polls.RecalculatePoll(ctx, pollID)
}

// RecalculateAll recomputes every poll. Each poll runs in its own
// serialized transaction, so recalculation of different polls can
// interleave freely with live voting on others.
func (s *AggregateService) RecalculateAll(ctx context.Context, callerID string) (*models.RecalcSummary, error) {
	if err := s.requireSystemAccount(ctx, callerID); err != nil {
		return nil, err
	}

	polls, err := s.polls.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.RecalcSummary{}
	for _, poll := range polls {
		stats, err := s.polls.RecalculatePoll(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		if stats.TotalVotes != poll.TotalVotes {
			slog.Info("poll total corrected",
				"pollID", poll.ID, "old", poll.TotalVotes, "new", stats.TotalVotes)
		}
		summary.UpdatedPolls++
		summary.UpdatedOptions += stats.UpdatedOptions
		summary.OrphanedVotes += stats.OrphanedVotes
	}

	slog.Info("recalculation finished",
		"polls", summary.UpdatedPolls, "options", summary.UpdatedOptions)
	return summary, nil
}

// CleanupInvalidUsers deletes accounts outside the allowed birth-year
// window along with their vote records, then recomputes exactly the polls
// that lost records. Deleting records before recomputing keeps the
// recompute a plain re-derivation; each affected poll is recomputed in
// its own locked transaction.
func (s *AggregateService) CleanupInvalidUsers(ctx context.Context, callerID string) (*models.CleanupSummary, error) {
	if err := s.requireSystemAccount(ctx, callerID); err != nil {
		return nil, err
	}

	invalid, err := s.users.FindIneligible(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("invalid users found", "count", len(invalid))

	emails := make([]string, 0, len(invalid))
	ids := make([]uint, 0, len(invalid))
	for _, u := range invalid {
		emails = append(emails, u.Email)
		ids = append(ids, u.ID)
	}

	affected, deleted, err := s.polls.DeleteVoteRecordsByUsers(ctx, emails)
	if err != nil {
		return nil, err
	}
	slog.Info("vote records deleted", "count", deleted, "affectedPolls", len(affected))

	summary := &models.CleanupSummary{
		DeletedUsers:       len(invalid),
		DeletedVoteRecords: deleted,
		InvalidUserEmails:  emails,
	}
	for _, pollID := range affected {
		stats, err := s.polls.RecalculatePoll(ctx, pollID)
		if err != nil {
			return nil, err
		}
		summary.UpdatedPolls++
		summary.UpdatedOptions += stats.UpdatedOptions
	}

	if err := s.users.DeleteByIDs(ctx, ids); err != nil {
		return nil, err
	}

	slog.Info("cleanup finished",
		"deletedUsers", summary.DeletedUsers,
		"deletedRecords", summary.DeletedVoteRecords,
		"updatedPolls", summary.UpdatedPolls)
	return summary, nil
}

func (s *AggregateService) Stats(ctx context.Context, callerID string) (*models.AdminStats, error) {
	if err := s.requireSystemAccount(ctx, callerID); err != nil {
		return nil, err
	}

	totalUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	invalid, err := s.users.FindIneligible(ctx)
	if err != nil {
		return nil, err
	}
	totalPolls, err := s.polls.CountPolls(ctx)
	if err != nil {
		return nil, err
	}
	totalRecords, err := s.polls.CountVoteRecords(ctx)
	if err != nil {
		return nil, err
	}

	return &models.AdminStats{
		TotalUsers:       totalUsers,
		ValidUsers:       totalUsers - int64(len(invalid)),
		InvalidUsers:     int64(len(invalid)),
		TotalPolls:       totalPolls,
		TotalVoteRecords: totalRecords,
	}, nil
}

func (s *AggregateService) HotPolls(ctx context.Context, callerID string) ([]models.Poll, error) {
	if err := s.requireSystemAccount(ctx, callerID); err != nil {
		return nil, err
	}
	return s.polls.FindHot(ctx, hotPollThreshold)
}

func (s *AggregateService) UpdateCategory(ctx context.Context, callerID string, req models.UpdateCategoryRequest) error {
	if err := s.requireSystemAccount(ctx, callerID); err != nil {
		return err
	}
	if err := s.polls.UpdateCategory(ctx, req.PollID, req.Category); err != nil {
		return err
	}
	slog.Info("poll category updated", "pollID", req.PollID, "category", req.Category)
	return nil
}

func (s *AggregateService) SetOptionVotes(ctx context.Context, callerID string, req models.UpdateOptionVotesRequest) error {
	if err := s.requireSystemAccount(ctx, callerID); err != nil {
		return err
	}
	if err := s.polls.SetOptionVotes(ctx, req.PollID, req.Options); err != nil {
		return err
	}
	slog.Info("option votes overwritten", "pollID", req.PollID, "options", len(req.Options))
	return nil
}
