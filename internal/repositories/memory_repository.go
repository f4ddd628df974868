package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"niucard/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user.
func (r *MemoryUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("failed to create user: username or email already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

// GetByUsername returns a user by username.
func (r *MemoryUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username }, "username", username)
}

// GetByEmail returns a user by email.
func (r *MemoryUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email }, "email", email)
}

// GetByID returns a user by ID.
func (r *MemoryUserRepository) GetByID(id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id }, "id", id)
}

func (r *MemoryUserRepository) find(match func(models.User) bool, field, value string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user with %s %q: %w", field, value, ErrNotFound)
}

// MemoryCardRepository is an in-memory implementation of CardRepository.
type MemoryCardRepository struct {
	cards map[string]models.Card
	mu    sync.RWMutex
}

// NewMemoryCardRepository creates a new instance of MemoryCardRepository.
func NewMemoryCardRepository() *MemoryCardRepository {
	return &MemoryCardRepository{
		cards: make(map[string]models.Card),
	}
}

// ListByOwner returns the cards of userID ordered by creation time.
func (r *MemoryCardRepository) ListByOwner(userID string) ([]models.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cards := make([]models.Card, 0)
	for _, c := range r.cards {
		if c.UserID == userID {
			cards = append(cards, c)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].CreatedAt.Before(cards[j].CreatedAt) })
	return cards, nil
}

// GetByID returns a card by ID regardless of owner.
func (r *MemoryCardRepository) GetByID(id string) (*models.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	card, ok := r.cards[id]
	if !ok {
		return nil, fmt.Errorf("card with ID %s: %w", id, ErrNotFound)
	}
	return &card, nil
}

// GetOwned returns a card only if userID owns it.
func (r *MemoryCardRepository) GetOwned(id, userID string) (*models.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	card, ok := r.cards[id]
	if !ok || card.UserID != userID {
		return nil, fmt.Errorf("card with ID %s for user %s: %w", id, userID, ErrNotFound)
	}
	return &card, nil
}

// Create adds a new card.
func (r *MemoryCardRepository) Create(card *models.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now
	r.cards[card.ID] = *card
	return nil
}

// Update replaces an existing card owned by card.UserID.
func (r *MemoryCardRepository) Update(card *models.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.cards[card.ID]
	if !ok || existing.UserID != card.UserID {
		return fmt.Errorf("card with ID %s for update: %w", card.ID, ErrNotFound)
	}
	card.CreatedAt = existing.CreatedAt
	card.UpdatedAt = time.Now()
	r.cards[card.ID] = *card
	return nil
}

// Delete removes a card owned by userID.
func (r *MemoryCardRepository) Delete(id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, ok := r.cards[id]
	if !ok || card.UserID != userID {
		return fmt.Errorf("card with ID %s for deletion: %w", id, ErrNotFound)
	}
	delete(r.cards, id)
	return nil
}
