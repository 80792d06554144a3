package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/repository"
)

// UserRepository keeps users in a map keyed by id with an email index.
type UserRepository struct {
	mu      sync.RWMutex
	nextID  uint
	byID    map[uint]models.User
	byEmail map[string]uint
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uint]models.User),
		byEmail: make(map[string]uint),
	}
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return repository.ErrDuplicate
	}

	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.Roles = append([]string(nil), user.Roles...)
	r.byID[user.ID] = stored
	r.byEmail[key] = user.ID
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *UserRepository) Update(_ context.Context, id uint, update repository.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}

	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Address != nil {
		user.Address = *update.Address
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	if update.PasswordHash != nil {
		user.PasswordHash = *update.PasswordHash
	}
	if update.Roles != nil {
		user.Roles = append([]string(nil), update.Roles...)
	}
	if update.Verified != nil {
		user.Verified = *update.Verified
	}
	user.UpdatedAt = time.Now()

	r.byID[id] = user
	return nil
}

func (r *UserRepository) Count(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func cloneUser(u models.User) *models.User {
	u.Roles = append([]string(nil), u.Roles...)
	return &u
}
