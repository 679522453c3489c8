package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/esgdash/internal/domain"
)

// userRepository implements UserRepository interface
type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		user      domain.User
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Company, &createdAt); err != nil {
		return domain.User{}, err
	}
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}
	return user, nil
}

// Create stores a new account; a taken email is a conflict.
func (r *userRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	email := domain.NormalizeEmail(user.Email)
	created, err := scanUser(r.pool.QueryRow(
		ctx,
		`INSERT INTO users (email, password_hash, company)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, password_hash, company, created_at`,
		email,
		user.PasswordHash,
		user.Company,
	))
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.User{}, &domain.ConflictError{Field: "email", Value: email}
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetByEmail retrieves an account by its normalised email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(
		ctx,
		`SELECT id, email, password_hash, company, created_at
		 FROM users
		 WHERE email = $1`,
		domain.NormalizeEmail(email),
	))
	if err != nil {
		if err = notFound(err, "user"); isNotFound(err) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}
