package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BROWN1213/picknic/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PollRepository is the durable vote ledger: polls, options and the
// one-record-per-(poll,user) vote records derived counters are rebuilt from.
type PollRepository interface {
	Create(ctx context.Context, poll *models.Poll) error
	FindByIDWithOptions(ctx context.Context, id uint) (*models.Poll, error)
	FindActive(ctx context.Context, now time.Time) ([]models.Poll, error)
	FindByCreator(ctx context.Context, creatorID string) ([]models.Poll, error)
	FindAll(ctx context.Context) ([]models.Poll, error)
	FindHot(ctx context.Context, minVotes int) ([]models.Poll, error)
	Close(ctx context.Context, pollID uint) error
	UpdateCategory(ctx context.Context, pollID uint, category string) error
	SetOptionVotes(ctx context.Context, pollID uint, counts []models.OptionVoteCount) error
	CountPolls(ctx context.Context) (int64, error)

	CastVote(ctx context.Context, pollID uint, userID string, optionID uint) (*models.VoteRecord, error)
	FindVoteRecord(ctx context.Context, pollID uint, userID string) (*models.VoteRecord, error)
	ListVoteRecords(ctx context.Context, pollID uint) ([]models.VoteRecord, error)
	CountVoteRecords(ctx context.Context) (int64, error)

	RecalculatePoll(ctx context.Context, pollID uint) (*models.RecalcStats, error)
	DeleteVoteRecordsByUsers(ctx context.Context, userIDs []string) ([]uint, int64, error)
}

type pollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) Create(ctx context.Context, poll *models.Poll) error {
	return r.db.WithContext(ctx).Create(poll).Error
}

func (r *pollRepository) FindByIDWithOptions(ctx context.Context, id uint) (*models.Poll, error) {
	var poll models.Poll
	err := r.db.WithContext(ctx).Preload("Options").First(&poll, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) FindActive(ctx context.Context, now time.Time) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.db.WithContext(ctx).Preload("Options").
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Order("created_at DESC").
		Find(&polls).Error
	return polls, err
}

func (r *pollRepository) FindByCreator(ctx context.Context, creatorID string) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.db.WithContext(ctx).Preload("Options").
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&polls).Error
	return polls, err
}

func (r *pollRepository) FindAll(ctx context.Context) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.db.WithContext(ctx).Preload("Options").
		Order("created_at DESC").
		Find(&polls).Error
	return polls, err
}

func (r *pollRepository) FindHot(ctx context.Context, minVotes int) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.db.WithContext(ctx).Preload("Options").
		Where("total_votes > ?", minVotes).
		Order("total_votes DESC").
		Find(&polls).Error
	return polls, err
}

func (r *pollRepository) Close(ctx context.Context, pollID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Poll{}).
		Where("id = ?", pollID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrPollNotFound
	}
	return nil
}

func (r *pollRepository) UpdateCategory(ctx context.Context, pollID uint, category string) error {
	res := r.db.WithContext(ctx).Model(&models.Poll{}).
		Where("id = ?", pollID).
		Update("category", category)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrPollNotFound
	}
	return nil
}

// SetOptionVotes overwrites per-option counters and the poll total in one
// transaction. Admin-only; the total is the sum of the supplied counts.
func (r *pollRepository) SetOptionVotes(ctx context.Context, pollID uint, counts []models.OptionVoteCount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&poll, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrPollNotFound
			}
			return err
		}

		total := 0
		for _, c := range counts {
			res := tx.Model(&models.Option{}).
				Where("id = ? AND poll_id = ?", c.OptionID, pollID).
				Update("vote_count", c.VoteCount)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return models.ErrOptionNotFound
			}
			total += c.VoteCount
		}

		return tx.Model(&models.Poll{}).
			Where("id = ?", pollID).
			Update("total_votes", total).Error
	})
}

func (r *pollRepository) CountPolls(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Poll{}).Count(&count).Error
	return count, err
}

// CastVote performs the single cross-entity transaction of the system:
// the vote record insert and both counter increments commit together or
// not at all. The poll row is locked for the duration so a concurrent
// recalculation of the same poll serializes behind it.
func (r *pollRepository) CastVote(ctx context.Context, pollID uint, userID string, optionID uint) (*models.VoteRecord, error) {
	var record *models.VoteRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&poll, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrPollNotFound
			}
			return err
		}
		if poll.Closed(time.Now()) {
			return models.ErrPollClosed
		}

		var option models.Option
		if err := tx.Where("id = ? AND poll_id = ?", optionID, pollID).First(&option).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrOptionNotFound
			}
			return err
		}

		rec := &models.VoteRecord{
			PollID:           pollID,
			UserID:           userID,
			SelectedOptionID: optionID,
		}
		if err := tx.Create(rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrAlreadyVoted
			}
			return err
		}

		if err := tx.Model(&models.Option{}).
			Where("id = ?", optionID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Poll{}).
			Where("id = ?", pollID).
			UpdateColumn("total_votes", gorm.Expr("total_votes + 1")).Error; err != nil {
			return err
		}

		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *pollRepository) FindVoteRecord(ctx context.Context, pollID uint, userID string) (*models.VoteRecord, error) {
	var rec models.VoteRecord
	err := r.db.WithContext(ctx).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *pollRepository) ListVoteRecords(ctx context.Context, pollID uint) ([]models.VoteRecord, error) {
	var records []models.VoteRecord
	err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).Find(&records).Error
	return records, err
}

func (r *pollRepository) CountVoteRecords(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VoteRecord{}).Count(&count).Error
	return count, err
}

// RecalculatePoll re-derives the poll's counters from its vote records.
// The read and the writes share one transaction, with the poll row locked,
// so an in-flight cast for the same poll cannot be recomputed away.
// Idempotent: a second run over unchanged records writes the same values.
func (r *pollRepository) RecalculatePoll(ctx context.Context, pollID uint) (*models.RecalcStats, error) {
	stats := &models.RecalcStats{PollID: pollID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll models.Poll
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&poll, pollID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrPollNotFound
			}
			return err
		}

		var options []models.Option
		if err := tx.Where("poll_id = ?", pollID).Find(&options).Error; err != nil {
			return err
		}
		var records []models.VoteRecord
		if err := tx.Where("poll_id = ?", pollID).Find(&records).Error; err != nil {
			return err
		}

		summary := models.AggregateVoteCounts(records, options)
		if summary.Orphaned > 0 {
			// Data-integrity drift: records pointing at deleted options.
			// Counted in the poll total, attributed to no option.
			slog.Warn("orphaned vote records found during recalculation",
				"pollID", pollID, "count", summary.Orphaned)
		}

		for _, opt := range options {
			if err := tx.Model(&models.Option{}).
				Where("id = ?", opt.ID).
				Update("vote_count", summary.ByOption[opt.ID]).Error; err != nil {
				return err
			}
			stats.UpdatedOptions++
		}

		if err := tx.Model(&models.Poll{}).
			Where("id = ?", pollID).
			Update("total_votes", summary.Total).Error; err != nil {
			return err
		}

		stats.TotalVotes = summary.Total
		stats.OrphanedVotes = summary.Orphaned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteVoteRecordsByUsers removes every vote record belonging to the
// given users and returns the ids of the polls that lost records. Callers
// must recalculate those polls immediately afterwards.
func (r *pollRepository) DeleteVoteRecordsByUsers(ctx context.Context, userIDs []string) ([]uint, int64, error) {
	if len(userIDs) == 0 {
		return nil, 0, nil
	}

	var affected []uint
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VoteRecord{}).
			Distinct("poll_id").
			Where("user_id IN ?", userIDs).
			Pluck("poll_id", &affected).Error; err != nil {
			return err
		}

		res := tx.Where("user_id IN ?", userIDs).Delete(&models.VoteRecord{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return affected, deleted, nil
}
