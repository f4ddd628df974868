package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"niucard/internal/models"
	"niucard/internal/repositories"
	"niucard/internal/storage"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CardExchange is the exchange card lifecycle events are published to.
const CardExchange = "cards"

// EventPublisher publishes a message body under a routing key.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// CardEvent is the payload published after every card mutation.
type CardEvent struct {
	Type   string    `json:"type"`
	CardID string    `json:"card_id"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// CardInput carries the submitted form fields. A nil upload keeps the card's
// current file.
type CardInput struct {
	Name       string `validate:"required,max=100"`
	Email      string `validate:"required,email"`
	Birthday   string `validate:"omitempty,datetime=2006-01-02"`
	Profession string `validate:"omitempty,max=100"`
	LineLink   string `validate:"omitempty,url"`
	FBLink     string `validate:"omitempty,url"`
	Avatar     *storage.Upload
	VCard      *storage.Upload
}

// CardService handles business logic related to cards.
type CardService struct {
	repo   repositories.CardRepository
	files  *storage.FileStore
	events EventPublisher
}

// NewCardService creates a new CardService. events may be nil.
func NewCardService(repo repositories.CardRepository, files *storage.FileStore, events EventPublisher) *CardService {
	return &CardService{
		repo:   repo,
		files:  files,
		events: events,
	}
}

// ListCards returns the cards owned by userID.
func (s *CardService) ListCards(userID string) ([]models.Card, error) {
	return s.repo.ListByOwner(userID)
}

// GetCard returns any card by ID; used by the public preview.
func (s *CardService) GetCard(id string) (*models.Card, error) {
	card, err := s.repo.GetByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return card, nil
}

// CreateCard stores the uploads first and then the card. If any step fails,
// files saved so far are removed.
func (s *CardService) CreateCard(userID string, in CardInput) (*models.Card, error) {
	if err := checkUploads(in); err != nil {
		return nil, err
	}

	card := &models.Card{ID: uuid.New().String(), UserID: userID}
	applyInput(card, in)

	var saved []string
	rollback := func() {
		for _, p := range saved {
			if err := s.files.Remove(p); err != nil {
				log.Warnf("failed to roll back %s: %v", p, err)
			}
		}
	}

	if in.Avatar != nil {
		p, err := s.files.SaveAvatar(card.ID, *in.Avatar)
		if err != nil {
			return nil, err
		}
		saved = append(saved, p)
		card.Avatar = p
	}
	if in.VCard != nil {
		p, err := s.files.SaveVCard(card.ID, *in.VCard)
		if err != nil {
			rollback()
			return nil, err
		}
		saved = append(saved, p)
		card.VCFPath = p
	}

	if err := s.repo.Create(card); err != nil {
		rollback()
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	s.publish("card.created", card)
	return card, nil
}

// UpdateCard replaces the card's fields. Files are only replaced when a new
// upload is supplied. New files are written under fresh names and the old ones
// are removed once the update succeeded; on failure the new ones are removed.
func (s *CardService) UpdateCard(userID, id string, in CardInput) (*models.Card, error) {
	if err := checkUploads(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetOwned(id, userID)
	if err != nil {
		return nil, notFound(err)
	}

	card := *existing
	applyInput(&card, in)

	var saved, superseded []string
	if in.Avatar != nil {
		p, err := s.files.SaveAvatar(card.ID, *in.Avatar)
		if err != nil {
			return nil, err
		}
		saved = append(saved, p)
		superseded = append(superseded, existing.Avatar)
		card.Avatar = p
	}
	if in.VCard != nil {
		p, err := s.files.SaveVCard(card.ID, *in.VCard)
		if err != nil {
			s.removeAll(saved)
			return nil, err
		}
		saved = append(saved, p)
		superseded = append(superseded, existing.VCFPath)
		card.VCFPath = p
	}

	card.UpdatedAt = time.Now()
	if err := s.repo.Update(&card); err != nil {
		s.removeAll(saved)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to update card: %w", err)
	}
	s.removeAll(superseded)

	s.publish("card.updated", &card)
	return &card, nil
}

// DeleteCard removes an owned card and its stored files.
func (s *CardService) DeleteCard(userID, id string) error {
	card, err := s.repo.GetOwned(id, userID)
	if err != nil {
		return notFound(err)
	}
	if err := s.repo.Delete(id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound(err)
		}
		return fmt.Errorf("failed to delete card: %w", err)
	}
	s.removeAll([]string{card.Avatar, card.VCFPath})

	s.publish("card.deleted", card)
	return nil
}

func (s *CardService) removeAll(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.files.Remove(p); err != nil {
			log.Warnf("failed to remove file %s: %v", p, err)
		}
	}
}

func (s *CardService) publish(eventType string, card *models.Card) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(CardEvent{Type: eventType, CardID: card.ID, UserID: card.UserID, At: time.Now().UTC()})
	if err != nil {
		log.Errorf("Failed to marshal %s event: %v", eventType, err)
		return
	}
	if err := s.events.Publish(CardExchange, eventType, body); err != nil {
		log.Warnf("Failed to publish %s event for card %s: %v", eventType, card.ID, err)
	}
}

func checkUploads(in CardInput) error {
	if in.Avatar != nil {
		if err := storage.ValidateAvatar(in.Avatar.Filename); err != nil {
			return err
		}
	}
	if in.VCard != nil {
		if err := storage.ValidateVCard(in.VCard.Filename); err != nil {
			return err
		}
	}
	return nil
}

func applyInput(card *models.Card, in CardInput) {
	card.Name = strings.TrimSpace(in.Name)
	card.Email = strings.TrimSpace(in.Email)
	card.Birthday = NormalizeBirthday(in.Birthday)
	card.Profession = strings.TrimSpace(in.Profession)
	card.LineLink = strings.TrimSpace(in.LineLink)
	card.FBLink = strings.TrimSpace(in.FBLink)
}

// NormalizeBirthday keeps only the date part of a submitted birthday, so both
// "1990-05-01" and "1990-05-01T00:00:00Z" become "1990-05-01".
func NormalizeBirthday(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 10 {
		v = v[:10]
	}
	return v
}

func notFound(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrCardNotFound, err)
	}
	return err
}
