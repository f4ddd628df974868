package repositories

import (
	"errors"
	"fmt"

	"niucard/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCardRepository is a GORM implementation of CardRepository.
type GORMCardRepository struct {
	db *gorm.DB
}

// NewGORMCardRepository creates a new instance of GORMCardRepository.
func NewGORMCardRepository(db *gorm.DB) *GORMCardRepository {
	return &GORMCardRepository{
		db: db,
	}
}

// ListByOwner retrieves all cards owned by userID, oldest first.
func (r *GORMCardRepository) ListByOwner(userID string) ([]models.Card, error) {
	cards := []models.Card{}
	if err := r.db.Where("user_id = ?", userID).Order("created_at asc").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to list cards for user %s: %w", userID, err)
	}
	return cards, nil
}

// GetByID retrieves a card regardless of owner.
func (r *GORMCardRepository) GetByID(id string) (*models.Card, error) {
	var card models.Card
	if err := r.db.First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("card with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card by ID %s: %w", id, err)
	}
	return &card, nil
}

// GetOwned retrieves a card only if it belongs to userID.
func (r *GORMCardRepository) GetOwned(id, userID string) (*models.Card, error) {
	var card models.Card
	if err := r.db.First(&card, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("card with ID %s for user %s: %w", id, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card by ID %s: %w", id, err)
	}
	return &card, nil
}

// Create creates a new card in the database.
func (r *GORMCardRepository) Create(card *models.Card) error {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if err := r.db.Create(card).Error; err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// Update overwrites every column of an existing card owned by card.UserID.
func (r *GORMCardRepository) Update(card *models.Card) error {
	res := r.db.Model(&models.Card{}).
		Where("id = ? AND user_id = ?", card.ID, card.UserID).
		Select("name", "email", "birthday", "profession", "avatar", "vcf_path", "line_link", "fb_link", "updated_at").
		Updates(card)
	if res.Error != nil {
		return fmt.Errorf("failed to update card: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("card with ID %s for update: %w", card.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a card owned by userID.
func (r *GORMCardRepository) Delete(id, userID string) error {
	res := r.db.Delete(&models.Card{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete card: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("card with ID %s for deletion: %w", id, ErrNotFound)
	}
	return nil
}
