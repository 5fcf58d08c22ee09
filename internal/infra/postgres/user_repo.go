package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"letsquiz-service/internal/domain"
)

// UserRepository is the Postgres implementation of app.UserRepository.
type UserRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	rec := &userRecord{
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsActive:     user.IsActive,
		IsPremium:    user.IsPremium,
		JoinedAt:     user.JoinedAt,
	}
	if _, err := r.db.NewInsert().Model(rec).Returning("id").Exec(ctx); err != nil {
		// The unique index backs up the service-level email precheck.
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = rec.ID
	return nil
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	rec := new(userRecord)
	err := r.db.NewSelect().Model(rec).Where("u.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	rec := new(userRecord)
	err := r.db.NewSelect().Model(rec).Where("u.email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return rec.toDomain(), nil
}
