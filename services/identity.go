package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kendall-kelly/barter-api/models"
	"gorm.io/gorm"
)

// IdentityDirectory resolves users by id or token subject
type IdentityDirectory interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	BySubject(ctx context.Context, subject string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, changes ProfileChanges) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// ProfileChanges carries the optional fields of a profile update; empty strings are left untouched
type ProfileChanges struct {
	FirstName string
	LastName  string
	Email     string
	AvatarURL string
}

// UserDirectory is the gorm-backed IdentityDirectory
type UserDirectory struct {
	db *gorm.DB
}

// NewUserDirectory creates a directory over the users table
func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) ByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageFailure("load user", err)
	}
	return &user, nil
}

func (d *UserDirectory) ByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, storageFailure("load users", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (d *UserDirectory) BySubject(ctx context.Context, subject string) (*models.User, error) {
	if subject == "" {
		return nil, ErrUnauthorized
	}
	var user models.User
	err := d.db.WithContext(ctx).Where("auth_subject = ?", subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageFailure("load user", err)
	}
	return &user, nil
}

func (d *UserDirectory) Create(ctx context.Context, user *models.User) error {
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	user.Email = strings.TrimSpace(user.Email)
	if user.AuthSubject == "" {
		return ErrUnauthorized
	}
	if user.Email == "" {
		return validation("MISSING_EMAIL", "Email is required")
	}
	if user.FirstName == "" && user.LastName == "" {
		return validation("MISSING_NAME", "Name is required")
	}
	if user.AvatarURL == "" {
		user.AvatarURL = models.DefaultAvatar
	}

	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return conflict("USER_EXISTS", "A user with this subject or email already exists")
		}
		return storageFailure("create user", err)
	}
	return nil
}

func (d *UserDirectory) UpdateProfile(ctx context.Context, id uint, changes ProfileChanges) (*models.User, error) {
	user, err := d.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if v := strings.TrimSpace(changes.FirstName); v != "" {
		updates["first_name"] = v
	}
	if v := strings.TrimSpace(changes.LastName); v != "" {
		updates["last_name"] = v
	}
	if v := strings.TrimSpace(changes.Email); v != "" {
		updates["email"] = v
	}
	if v := strings.TrimSpace(changes.AvatarURL); v != "" {
		updates["avatar_url"] = v
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := d.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("EMAIL_EXISTS", "A user with this email already exists")
		}
		return nil, storageFailure("update user", err)
	}
	return d.ByID(ctx, id)
}

// List returns every registered user in registration order
func (d *UserDirectory) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := d.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, storageFailure("list users", err)
	}
	return users, nil
}

// isUniqueViolation recognizes duplicate-key errors from both postgres and sqlite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
