package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/blog-content-api/internal/database"
	"github.com/blog-content-api/internal/models"
)

const userColumns = `id, username, email, password_hash, is_vip, wallet_balance, avatar, created_at, updated_at`

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

// Create inserts a new user. A unique violation that raced past the
// service's existence checks maps to the matching duplicate error.
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, is_vip, wallet_balance, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.IsVIP, user.WalletBalance,
		user.Avatar, user.CreatedAt, user.UpdatedAt,
	)
	switch {
	case database.IsPQError(err, database.UniqueViolation, "users_username_key"):
		return models.ErrDuplicateHandle
	case database.IsPQError(err, database.UniqueViolation, "users_email_key"):
		return models.ErrDuplicateEmail
	}
	return err
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by handle
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsVIP,
		&user.WalletBalance, &avatar, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if avatar.Valid {
		user.Avatar = &avatar.String
	}
	return &user, nil
}

// UsernameExists checks if a user with the given handle exists
func (r *userRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists)
	return exists, err
}

// EmailExists checks if a user with the given email exists
func (r *userRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists)
	return exists, err
}

// UpdatePassword replaces the credential digest
func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash)
}

// UpdateAvatar overwrites the avatar reference
func (r *userRepo) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return r.updateOne(ctx, `UPDATE users SET avatar = $2, updated_at = $3 WHERE id = $1`, id, avatar)
}

func (r *userRepo) updateOne(ctx context.Context, query, id, value string) error {
	res, err := r.db.ExecContext(ctx, query, id, value, time.Now())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
