package models

import (
	"strings"
	"time"
)

// Auth providers.
const (
	ProviderGoogle = "GOOGLE"
	ProviderLocal  = "LOCAL"
)

// Eligible student birth-year window. Accounts outside it are removed by
// the admin cleanup together with their vote records.
const (
	MinBirthYear = 2007
	MaxBirthYear = 2012
)

/** --------------------ENTITIES-------------------- */

// User as stored by this service. The user identifier handed around the
// rest of the system is the email, matching the member keys in the
// leaderboard index.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"size:255;unique;not null" json:"email"`
	Password        string    `gorm:"size:255" json:"-"` // empty for OAuth users
	Nickname        string    `gorm:"size:100" json:"nickname"`
	Gender          string    `gorm:"size:10" json:"gender,omitempty"`
	BirthYear       *int      `json:"birthYear,omitempty"`
	SchoolName      string    `gorm:"size:255" json:"schoolName,omitempty"`
	Provider        string    `gorm:"size:20;not null" json:"provider"`
	ProviderID      string    `gorm:"size:255" json:"-"`
	IsSystemAccount bool      `gorm:"not null;default:false" json:"isSystemAccount"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// SchoolVerified reports whether the user completed school verification.
// Unverified users keep earning points but never appear in rankings.
func (u *User) SchoolVerified() bool {
	return strings.TrimSpace(u.SchoolName) != ""
}

// EligibleBirthYear reports whether the user falls inside the allowed
// student birth-year window. A missing birth year counts as ineligible.
func (u *User) EligibleBirthYear() bool {
	if u.BirthYear == nil {
		return false
	}
	return *u.BirthYear >= MinBirthYear && *u.BirthYear <= MaxBirthYear
}

// DirectoryUser is the validity view of a user consumed by the rank
// resolver. A nil DirectoryUser from a lookup means the account no longer
// exists.
type DirectoryUser struct {
	IsSystemAccount bool
	SchoolVerified  bool
}

/** -------------------- DTOs -------------------- */

// Request
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Nickname  string `json:"nickname" binding:"required"`
	Gender    string `json:"gender"`
	BirthYear *int   `json:"birthYear"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type OAuthCallbackRequest struct {
	Email      string `json:"email" binding:"required,email"`
	ProviderID string `json:"providerId" binding:"required"`
	Provider   string `json:"provider" binding:"required"`
}

type CompleteProfileRequest struct {
	Nickname   string `json:"nickname" binding:"required"`
	Gender     string `json:"gender"`
	BirthYear  *int   `json:"birthYear" binding:"required"`
	SchoolName string `json:"schoolName" binding:"required"`
}

// Response
type ProfileResponse struct {
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	Points          int64  `json:"points"`
	Rank            *int64 `json:"rank"`
	Level           string `json:"level"`
	LevelIcon       string `json:"levelIcon"`
	VerifiedSchool  string `json:"verifiedSchool,omitempty"`
	IsSystemAccount bool   `json:"isSystemAccount"`
}

type RankedMember struct {
	Rank   int64   `json:"rank"`
	UserID string  `json:"userId"`
	Points float64 `json:"points"`
	Level  string  `json:"level"`
}
