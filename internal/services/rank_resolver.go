package services

import (
	"context"

	"github.com/BROWN1213/picknic/internal/models"
)

// UserDirectory answers validity questions about an account. Implemented
// by the user repository; kept as an interface because the directory is
// owned by an external collaborator.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.DirectoryUser, error)
}

// RankResolver turns raw index positions into visible ranks. System
// accounts and users without a verified school keep earning points but
// are skipped when counting positions, and have no visible rank of their
// own.
type RankResolver struct {
	index     ScoreIndex
	directory UserDirectory
}

func NewRankResolver(index ScoreIndex, directory UserDirectory) *RankResolver {
	return &RankResolver{index: index, directory: directory}
}

// VisibleRank returns the 1-based rank of userID among eligible members.
// The second result is false when the user has no visible rank: not
// indexed, or excluded from ranking themselves.
//
// The full member list is walked top-down; cost is O(index size). Given
// expected leaderboard sizes this beats maintaining a second filtered
// index. A failed directory lookup for any scanned member fails the whole
// resolution rather than guessing at eligibility.
func (r *RankResolver) VisibleRank(ctx context.Context, userID string) (int64, bool, error) {
	members, err := r.index.TopMembers(ctx, LeaderboardKey, 0, -1)
	if err != nil {
		return 0, false, err
	}

	rank := int64(1)
	for _, member := range members {
		user, err := r.directory.GetUser(ctx, member)
		if err != nil {
			return 0, false, err
		}
		eligible := user != nil && !user.IsSystemAccount && user.SchoolVerified

		if member == userID {
			if !eligible {
				return 0, false, nil
			}
			return rank, true, nil
		}
		if eligible {
			rank++
		}
	}

	return 0, false, nil
}

// VisibleTop returns up to limit eligible members, ranked. Scores come
// from the same index read path; a directory failure aborts the listing.
func (r *RankResolver) VisibleTop(ctx context.Context, limit int) ([]models.RankedMember, error) {
	members, err := r.index.TopMembers(ctx, LeaderboardKey, 0, -1)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.RankedMember, 0, limit)
	rank := int64(1)
	for _, member := range members {
		if len(ranked) >= limit {
			break
		}
		user, err := r.directory.GetUser(ctx, member)
		if err != nil {
			return nil, err
		}
		if user == nil || user.IsSystemAccount || !user.SchoolVerified {
			continue
		}

		score, _, err := r.index.ScoreOf(ctx, LeaderboardKey, member)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, models.RankedMember{
			Rank:   rank,
			UserID: member,
			Points: score,
			Level:  models.LevelFromPoints(int64(score)).Name,
		})
		rank++
	}

	return ranked, nil
}
