package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BROWN1213/picknic/internal/models"
	"github.com/BROWN1213/picknic/internal/repositories/postgres"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService handles account provisioning, login and profile reads.
type UserService struct {
	repo      postgres.UserRepository
	index     ScoreIndex
	resolver  *RankResolver
	jwtSecret string
	jwtExpire time.Duration
}

func NewUserService(repo postgres.UserRepository, index ScoreIndex, resolver *RankResolver, jwtSecret string, jwtExpire time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		index:     index,
		resolver:  resolver,
		jwtSecret: jwtSecret,
		jwtExpire: jwtExpire,
	}
}

func (s *UserService) generateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":    user.Email,
		"email":  user.Email,
		"system": user.IsSystemAccount,
		"exp":    time.Now().Add(s.jwtExpire).Unix(),
		"iat":    time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetOrCreate resolves an OAuth identity to a user row, creating one on
// first login. Two concurrent first logins may both attempt the insert;
// the loser hits the unique email constraint and falls back to re-reading
// the winner's row, so one identity never yields two rows.
func (s *UserService) GetOrCreate(ctx context.Context, email, providerID, provider string) (*models.User, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	user := &models.User{
		Email:      email,
		Provider:   provider,
		ProviderID: providerID,
		Nickname:   temporaryNickname(email),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			slog.Warn("concurrent user creation detected, re-reading", "email", email)
			return s.repo.FindByEmail(ctx, email)
		}
		return nil, err
	}

	slog.Info("new OAuth user created", "email", email, "provider", provider)
	return user, nil
}

// temporaryNickname builds a placeholder nickname from the email's local
// part; users replace it when completing their profile.
func temporaryNickname(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	return fmt.Sprintf("%s_%s", local, uuid.New().String()[:6])
}

// Authenticate exchanges an OAuth-resolved identity for a session token.
func (s *UserService) Authenticate(ctx context.Context, req models.OAuthCallbackRequest) (string, *models.User, error) {
	user, err := s.GetOrCreate(ctx, req.Email, req.ProviderID, req.Provider)
	if err != nil {
		return "", nil, err
	}
	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, models.ErrUserExists
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     req.Email,
		Password:  string(hashed),
		Nickname:  req.Nickname,
		Gender:    req.Gender,
		BirthYear: req.BirthYear,
		Provider:  models.ProviderLocal,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return "", models.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", models.ErrBadCredentials
	}
	return s.generateJWT(user)
}

// CompleteProfile fills in the second-step signup fields. A non-empty
// school name is what flips the account to school-verified.
func (s *UserService) CompleteProfile(ctx context.Context, userID string, req models.CompleteProfileRequest) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Nickname = req.Nickname
	user.Gender = req.Gender
	user.BirthYear = req.BirthYear
	user.SchoolName = req.SchoolName
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile assembles the profile view: points and visible rank from the
// leaderboard index, level derived from points. A missing index entry
// reads as zero points, not an error.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.ProfileResponse, error) {
	user, err := s.repo.FindByEmail(ctx, userID)
	if err != nil {
		return nil, err
	}

	score, _, err := s.index.ScoreOf(ctx, LeaderboardKey, userID)
	if err != nil {
		return nil, err
	}
	points := int64(score)

	var rank *int64
	if r, ok, err := s.resolver.VisibleRank(ctx, userID); err != nil {
		return nil, err
	} else if ok {
		rank = &r
	}

	level := models.LevelFromPoints(points)
	return &models.ProfileResponse{
		UserID:          user.Email,
		Username:        user.Nickname,
		Points:          points,
		Rank:            rank,
		Level:           level.Name,
		LevelIcon:       level.Icon,
		VerifiedSchool:  user.SchoolName,
		IsSystemAccount: user.IsSystemAccount,
	}, nil
}
