package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blockedby/kandra/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UsersRepository handles accounts and their bearer tokens.
type UsersRepository struct {
	db *gorm.DB
}

// NewUsersRepository creates a new users repository
func NewUsersRepository(db *gorm.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Create registers an account. Emails are unique, case-insensitively.
func (r *UsersRepository) Create(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := r.db.WithContext(ctx).Model(&UserRow{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := UserRow{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         string(role),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	u := row.Model()
	return &u, nil
}

// Authenticate checks credentials and returns the account.
func (r *UsersRepository) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var row UserRow
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	u := row.Model()
	return &u, nil
}

// IssueToken creates a new bearer token for userID.
func (r *UsersRepository) IssueToken(ctx context.Context, userID models.ID) (string, error) {
	row := TokenRow{
		Token:     strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    userID.String(),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return row.Token, nil
}

// ByToken resolves a bearer token to its account.
func (r *UsersRepository) ByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	var tok TokenRow
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&tok).Error; err != nil {
		return nil, notFound(err)
	}
	return r.GetByID(ctx, models.ID(tok.UserID))
}

// RevokeToken deletes token. Unknown tokens are ignored.
func (r *UsersRepository) RevokeToken(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&TokenRow{}).Error; err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// GetByID returns one account.
func (r *UsersRepository) GetByID(ctx context.Context, id models.ID) (*models.User, error) {
	var row UserRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	u := row.Model()
	return &u, nil
}

// Count returns the number of accounts.
func (r *UsersRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&UserRow{}).Count(&n).Error
	return n, err
}
