package memory

import (
	"context"
	"sync"

	"letsquiz-service/internal/domain"
)

// UserRepository is an in-memory implementation of app.UserRepository.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	nextID int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]domain.User)}
}

func (r *UserRepository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.NewValidationError("A user with this email already exists.")
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetUser(_ context.Context, id int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}
