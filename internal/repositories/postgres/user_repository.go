package postgres

import (
	"context"
	"errors"

	"github.com/BROWN1213/picknic/internal/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	CountUsers(ctx context.Context) (int64, error)
	FindIneligible(ctx context.Context) ([]models.User, error)
	DeleteByIDs(ctx context.Context, ids []uint) error

	// GetUser is the directory lookup used by the rank resolver. It
	// returns (nil, nil) for accounts that no longer exist; an error
	// means the directory itself is unavailable.
	GetUser(ctx context.Context, id string) (*models.DirectoryUser, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// FindIneligible returns non-system accounts outside the allowed
// birth-year window, including those with no birth year at all.
func (r *userRepository) FindIneligible(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("is_system_account = ?", false).
		Where("birth_year IS NULL OR birth_year < ? OR birth_year > ?",
			models.MinBirthYear, models.MaxBirthYear).
		Find(&users).Error
	return users, err
}

func (r *userRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.User{}, ids).Error
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*models.DirectoryUser, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.DirectoryUser{
		IsSystemAccount: user.IsSystemAccount,
		SchoolVerified:  user.SchoolVerified(),
	}, nil
}
