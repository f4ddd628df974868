package services_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"niucard/internal/models"
	"niucard/internal/repositories"
	"niucard/internal/services"
	"niucard/internal/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCardRepository is a mock implementation of repositories.CardRepository
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) ListByOwner(userID string) ([]models.Card, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Card), args.Error(1)
}

func (m *MockCardRepository) GetByID(id string) (*models.Card, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockCardRepository) GetOwned(id, userID string) (*models.Card, error) {
	args := m.Called(id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockCardRepository) Create(card *models.Card) error {
	args := m.Called(card)
	return args.Error(0)
}

func (m *MockCardRepository) Update(card *models.Card) error {
	args := m.Called(card)
	return args.Error(0)
}

func (m *MockCardRepository) Delete(id, userID string) error {
	args := m.Called(id, userID)
	return args.Error(0)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, routingKey string, body []byte) error {
	args := m.Called(exchange, routingKey, body)
	return args.Error(0)
}

var (
	pngData  = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"
	jpegData = "\xff\xd8\xff\xe0\x00\x10JFIF\x00"
)

func upload(name, content string) *storage.Upload {
	return &storage.Upload{Filename: name, Content: strings.NewReader(content)}
}

func storedFiles(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	entries, _ := afero.ReadDir(fs, dir)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCardService_CreateCardStoresFilesAndPublishes(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := new(MockCardRepository)
	pub := new(MockPublisher)
	service := services.NewCardService(repo, storage.NewFileStore(fs, "static"), pub)

	repo.On("Create", mock.AnythingOfType("*models.Card")).Return(nil).Once()
	pub.On("Publish", services.CardExchange, "card.created", mock.MatchedBy(func(body []byte) bool {
		var ev services.CardEvent
		return json.Unmarshal(body, &ev) == nil && ev.UserID == "user-1" && ev.Type == "card.created"
	})).Return(nil).Once()

	card, err := service.CreateCard("user-1", services.CardInput{
		Name:     " Alice ",
		Email:    "alice@example.com",
		Birthday: "1990-05-01T00:00:00Z",
		Avatar:   upload("me.png", pngData),
		VCard:    upload("alice.vcf", "BEGIN:VCARD"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", card.Name)
	assert.Equal(t, "1990-05-01", card.Birthday)
	assert.Equal(t, "user-1", card.UserID)
	assert.Regexp(t, `^/static/avatars/`+card.ID+`-[0-9a-f]{8}-me\.png$`, card.Avatar)
	assert.Regexp(t, `^/static/vcf/`+card.ID+`-[0-9a-f]{8}\.vcf$`, card.VCFPath)

	assert.Len(t, storedFiles(t, fs, "static/avatars"), 1)
	assert.Len(t, storedFiles(t, fs, "static/vcf"), 1)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCardService_CreateCardRollsBackFilesOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, storage.NewFileStore(fs, "static"), nil)

	repo.On("Create", mock.AnythingOfType("*models.Card")).Return(errors.New("disk full")).Once()

	_, err := service.CreateCard("user-1", services.CardInput{
		Name:   "Alice",
		Email:  "alice@example.com",
		Avatar: upload("me.png", pngData),
		VCard:  upload("alice.vcf", "BEGIN:VCARD"),
	})
	assert.Error(t, err)

	for _, dir := range []string{"static/avatars", "static/vcf"} {
		entries, _ := afero.ReadDir(fs, dir)
		assert.Empty(t, entries, dir)
	}
}

func TestCardService_CreateCardRejectsBadExtensionsBeforeWriting(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, storage.NewFileStore(fs, "static"), nil)

	_, err := service.CreateCard("user-1", services.CardInput{
		Name:   "Alice",
		Email:  "alice@example.com",
		Avatar: upload("me.png", pngData),
		VCard:  upload("alice.txt", "nope"),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidFile)
	exists, _ := afero.DirExists(fs, "static/avatars")
	assert.False(t, exists)
	repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestCardService_UpdateCardKeepsFilesWhenNoneUploaded(t *testing.T) {
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, storage.NewFileStore(afero.NewMemMapFs(), "static"), nil)

	existing := &models.Card{ID: "c1", UserID: "user-1", Name: "Old", Avatar: "/static/avatars/c1-a.png", VCFPath: "/static/vcf/c1.vcf"}
	repo.On("GetOwned", "c1", "user-1").Return(existing, nil).Once()
	repo.On("Update", mock.MatchedBy(func(c *models.Card) bool {
		return c.Name == "New" && c.Avatar == existing.Avatar && c.VCFPath == existing.VCFPath
	})).Return(nil).Once()

	card, err := service.UpdateCard("user-1", "c1", services.CardInput{Name: "New", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "/static/avatars/c1-a.png", card.Avatar)
	repo.AssertExpectations(t)
}

func TestCardService_UpdateCardReplacesAvatar(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := storage.NewFileStore(fs, "static")
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, files, nil)

	oldPath, err := files.SaveAvatar("c1", storage.Upload{Filename: "old.png", Content: strings.NewReader(pngData)})
	require.NoError(t, err)

	existing := &models.Card{ID: "c1", UserID: "user-1", Name: "Old", Avatar: oldPath}
	repo.On("GetOwned", "c1", "user-1").Return(existing, nil).Once()
	repo.On("Update", mock.AnythingOfType("*models.Card")).Return(nil).Once()

	card, err := service.UpdateCard("user-1", "c1", services.CardInput{Name: "Old", Email: "a@example.com", Avatar: upload("new.jpg", jpegData)})
	require.NoError(t, err)
	assert.Regexp(t, `^/static/avatars/c1-[0-9a-f]{8}-new\.jpg$`, card.Avatar)

	oldFull, _ := files.Resolve(oldPath)
	newFull, _ := files.Resolve(card.Avatar)
	oldExists, _ := afero.Exists(fs, oldFull)
	newExists, _ := afero.Exists(fs, newFull)
	assert.False(t, oldExists)
	assert.True(t, newExists)
}

func TestCardService_UpdateCardFailureKeepsCurrentAvatar(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := storage.NewFileStore(fs, "static")
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, files, nil)

	current, err := files.SaveAvatar("c1", storage.Upload{Filename: "me.png", Content: strings.NewReader(pngData)})
	require.NoError(t, err)

	existing := &models.Card{ID: "c1", UserID: "user-1", Name: "Old", Avatar: current}
	repo.On("GetOwned", "c1", "user-1").Return(existing, nil).Once()
	repo.On("Update", mock.AnythingOfType("*models.Card")).Return(errors.New("db down")).Once()

	// same file name as the current avatar
	_, err = service.UpdateCard("user-1", "c1", services.CardInput{Name: "Old", Email: "a@example.com", Avatar: upload("me.png", pngData+"new")})
	assert.Error(t, err)

	full, _ := files.Resolve(current)
	data, err := afero.ReadFile(fs, full)
	require.NoError(t, err)
	assert.Equal(t, pngData, string(data))
	assert.Len(t, storedFiles(t, fs, "static/avatars"), 1)
}

func TestCardService_UpdateCardRejectsNonImageAvatar(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, storage.NewFileStore(fs, "static"), nil)

	existing := &models.Card{ID: "c1", UserID: "user-1", Name: "Old"}
	repo.On("GetOwned", "c1", "user-1").Return(existing, nil).Once()

	_, err := service.UpdateCard("user-1", "c1", services.CardInput{
		Name:   "Old",
		Email:  "a@example.com",
		Avatar: upload("evil.png", "<html><script>alert(1)</script></html>"),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidFile)
	assert.Empty(t, storedFiles(t, fs, "static/avatars"))
	repo.AssertNotCalled(t, "Update", mock.Anything)
}

func TestCardService_UpdateCardNotOwned(t *testing.T) {
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, storage.NewFileStore(afero.NewMemMapFs(), "static"), nil)

	repo.On("GetOwned", "c1", "intruder").Return(nil, repositories.ErrNotFound).Once()
	_, err := service.UpdateCard("intruder", "c1", services.CardInput{Name: "x", Email: "x@example.com"})
	assert.ErrorIs(t, err, services.ErrCardNotFound)
}

func TestCardService_DeleteCardRemovesFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := storage.NewFileStore(fs, "static")
	repo := new(MockCardRepository)
	pub := new(MockPublisher)
	service := services.NewCardService(repo, files, pub)

	avatar, err := files.SaveAvatar("c1", storage.Upload{Filename: "a.png", Content: strings.NewReader(pngData)})
	require.NoError(t, err)
	vcf, err := files.SaveVCard("c1", storage.Upload{Filename: "a.vcf", Content: strings.NewReader("v")})
	require.NoError(t, err)

	repo.On("GetOwned", "c1", "user-1").Return(&models.Card{ID: "c1", UserID: "user-1", Avatar: avatar, VCFPath: vcf}, nil).Once()
	repo.On("Delete", "c1", "user-1").Return(nil).Once()
	pub.On("Publish", services.CardExchange, "card.deleted", mock.Anything).Return(errors.New("broker gone")).Once()

	// a failed publish does not fail the delete
	require.NoError(t, service.DeleteCard("user-1", "c1"))

	assert.Empty(t, storedFiles(t, fs, "static/avatars"))
	assert.Empty(t, storedFiles(t, fs, "static/vcf"))
	pub.AssertExpectations(t)
}

func TestCardService_GetCardNotFound(t *testing.T) {
	repo := new(MockCardRepository)
	service := services.NewCardService(repo, storage.NewFileStore(afero.NewMemMapFs(), "static"), nil)

	repo.On("GetByID", "missing").Return(nil, repositories.ErrNotFound).Once()
	_, err := service.GetCard("missing")
	assert.ErrorIs(t, err, services.ErrCardNotFound)
}

func TestNormalizeBirthday(t *testing.T) {
	assert.Equal(t, "1990-05-01", services.NormalizeBirthday("1990-05-01"))
	assert.Equal(t, "1990-05-01", services.NormalizeBirthday(" 1990-05-01 00:00:00 "))
	assert.Equal(t, "", services.NormalizeBirthday(""))
}
