package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */

// Poll is a user-created question with a fixed set of options.
// TotalVotes mirrors the number of vote_records rows for the poll; it is
// maintained by the cast transaction and can be rebuilt from the records
// by the aggregate service.
type Poll struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	ImageURL    string     `gorm:"type:text" json:"imageUrl,omitempty"`
	CreatorID   string     `gorm:"size:255;not null;index" json:"creatorId"`
	Category    string     `gorm:"size:100" json:"category"`
	SchoolName  string     `gorm:"size:255" json:"schoolName,omitempty"`
	CreatedAt   time.Time  `gorm:"<-:create" json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	IsActive    bool       `gorm:"not null;default:true" json:"isActive"`
	TotalVotes  int        `gorm:"not null;default:0" json:"totalVotes"`
	Options     []Option   `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"options"`
}

func (Poll) TableName() string {
	return "polls"
}

// Closed reports whether the poll no longer accepts votes.
func (p *Poll) Closed(now time.Time) bool {
	if !p.IsActive {
		return true
	}
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

type Option struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	PollID    uint   `gorm:"not null;index" json:"pollId"`
	Text      string `gorm:"size:255;not null" json:"text"`
	VoteCount int    `gorm:"not null;default:0" json:"voteCount"`
}

func (Option) TableName() string {
	return "options"
}

// VoteRecord is the source of truth for "did this user vote on this poll".
// The composite unique index is the authoritative guard against double
// voting; concurrent casts for the same pair lose with a duplicate-key
// error regardless of any earlier existence check.
type VoteRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PollID           uint      `gorm:"not null;uniqueIndex:idx_vote_records_poll_user" json:"pollId"`
	UserID           string    `gorm:"size:255;not null;uniqueIndex:idx_vote_records_poll_user" json:"userId"`
	SelectedOptionID uint      `gorm:"not null;index" json:"selectedOptionId"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (VoteRecord) TableName() string {
	return "vote_records"
}

// VoteCountSummary is the result of re-deriving a poll's counters from its
// vote records. Orphaned counts records whose option no longer exists; they
// stay in Total but belong to no option.
type VoteCountSummary struct {
	Total    int
	ByOption map[uint]int
	Orphaned int
}

// AggregateVoteCounts groups a poll's vote records by selected option.
func AggregateVoteCounts(records []VoteRecord, options []Option) VoteCountSummary {
	known := make(map[uint]bool, len(options))
	for _, opt := range options {
		known[opt.ID] = true
	}

	summary := VoteCountSummary{
		Total:    len(records),
		ByOption: make(map[uint]int, len(options)),
	}
	for _, rec := range records {
		if known[rec.SelectedOptionID] {
			summary.ByOption[rec.SelectedOptionID]++
		} else {
			summary.Orphaned++
		}
	}
	return summary
}

/** -------------------- DTOs -------------------- */

// Request
type CreatePollRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	SchoolName  string     `json:"schoolName"`
	ImageURL    string     `json:"imageUrl"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	Options     []string   `json:"options" binding:"required,min=2"`
}

type CastVoteRequest struct {
	OptionID uint `json:"optionId" binding:"required"`
}

type UpdateCategoryRequest struct {
	PollID   uint   `json:"pollId" binding:"required"`
	Category string `json:"category" binding:"required"`
}

type OptionVoteCount struct {
	OptionID  uint `json:"optionId" binding:"required"`
	VoteCount int  `json:"voteCount" binding:"min=0"`
}

type UpdateOptionVotesRequest struct {
	PollID  uint              `json:"pollId" binding:"required"`
	Options []OptionVoteCount `json:"options" binding:"required,min=1"`
}

// Response
type RecalcStats struct {
	PollID         uint `json:"pollId"`
	TotalVotes     int  `json:"totalVotes"`
	UpdatedOptions int  `json:"updatedOptions"`
	OrphanedVotes  int  `json:"orphanedVotes"`
}

type RecalcSummary struct {
	UpdatedPolls   int `json:"updatedPolls"`
	UpdatedOptions int `json:"updatedOptions"`
	OrphanedVotes  int `json:"orphanedVotes"`
}

type CleanupSummary struct {
	DeletedUsers       int      `json:"deletedUsers"`
	DeletedVoteRecords int64    `json:"deletedVoteRecords"`
	UpdatedPolls       int      `json:"updatedPolls"`
	UpdatedOptions     int      `json:"updatedOptions"`
	InvalidUserEmails  []string `json:"invalidUserEmails"`
}

type AdminStats struct {
	TotalUsers       int64 `json:"totalUsers"`
	ValidUsers       int64 `json:"validUsers"`
	InvalidUsers     int64 `json:"invalidUsers"`
	TotalPolls       int64 `json:"totalPolls"`
	TotalVoteRecords int64 `json:"totalVoteRecords"`
}
