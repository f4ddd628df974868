package repositories

import "niucard/internal/models"

// CardRepository defines the interface for card data access. Every method except
// GetByID is scoped to the owning user.
type CardRepository interface {
	ListByOwner(userID string) ([]models.Card, error)
	GetByID(id string) (*models.Card, error)
	GetOwned(id, userID string) (*models.Card, error)
	Create(card *models.Card) error
	Update(card *models.Card) error
	Delete(id, userID string) error
}
