package handlers

import (
	"errors"
	"io"
	"mime/multipart"

	"niucard/internal/middleware"
	"niucard/internal/services"
	"niucard/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// Multipart part names used by the card form.
const (
	AvatarField = "avatar"
	VCardField  = "cardVcf"
)

// CardHandler handles HTTP requests for cards.
type CardHandler struct {
	service  *services.CardService
	validate *validator.Validate
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(service *services.CardService) *CardHandler {
	return &CardHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes registers the unauthenticated card routes.
func (h *CardHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/cards/:id", h.HandleGetCard)
}

// RegisterRoutes registers the owner-scoped card routes on the /cards group.
// router must already enforce authentication.
func (h *CardHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleListCards)
	router.Post("/", h.HandleCreateCard)
	router.Put("/:id", h.HandleUpdateCard)
	router.Delete("/:id", h.HandleDeleteCard)
}

// HandleListCards returns the caller's cards.
func (h *CardHandler) HandleListCards(c *fiber.Ctx) error {
	cards, err := h.service.ListCards(middleware.UserID(c))
	if err != nil {
		log.Errorf("Error listing cards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cards",
			"error":   err.Error(),
		})
	}
	return c.JSON(cards)
}

// HandleGetCard returns a single card to anyone holding its id.
func (h *CardHandler) HandleGetCard(c *fiber.Ctx) error {
	card, err := h.service.GetCard(c.Params("id"))
	if err != nil {
		return h.serviceError(c, err, "Could not retrieve card")
	}
	return c.JSON(card)
}

// HandleCreateCard creates a card from a multipart form.
func (h *CardHandler) HandleCreateCard(c *fiber.Ctx) error {
	in, closeFiles, err := h.parseCardForm(c)
	if err != nil {
		return err
	}
	defer closeFiles()
	if in == nil {
		return nil
	}

	card, err := h.service.CreateCard(middleware.UserID(c), *in)
	if err != nil {
		return h.serviceError(c, err, "Could not create card")
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

// HandleUpdateCard replaces an owned card from a multipart form.
func (h *CardHandler) HandleUpdateCard(c *fiber.Ctx) error {
	in, closeFiles, err := h.parseCardForm(c)
	if err != nil {
		return err
	}
	defer closeFiles()
	if in == nil {
		return nil
	}

	card, err := h.service.UpdateCard(middleware.UserID(c), c.Params("id"), *in)
	if err != nil {
		return h.serviceError(c, err, "Could not update card")
	}
	return c.JSON(card)
}

// HandleDeleteCard deletes an owned card.
func (h *CardHandler) HandleDeleteCard(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteCard(middleware.UserID(c), id); err != nil {
		return h.serviceError(c, err, "Could not delete card")
	}
	return c.JSON(fiber.Map{
		"message": "Card deleted",
	})
}

// parseCardForm reads and validates the multipart card form. When the request is
// rejected the response has already been written and the returned input is nil.
func (h *CardHandler) parseCardForm(c *fiber.Ctx) (*services.CardInput, func(), error) {
	noop := func() {}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	in := &services.CardInput{
		Name:       value("name"),
		Email:      value("email"),
		Birthday:   services.NormalizeBirthday(value("birthday")),
		Profession: value("profession"),
		LineLink:   value("line_link"),
		FBLink:     value("fb_link"),
	}
	if err := h.validate.Struct(in); err != nil {
		return nil, noop, validationFailed(c, err)
	}

	var closers []io.Closer
	closeFiles := func() {
		for _, cl := range closers {
			cl.Close()
		}
	}
	open := func(key string) (*storage.Upload, error) {
		fh := firstFile(form.File[key])
		if fh == nil {
			return nil, nil
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		closers = append(closers, f)
		return &storage.Upload{Filename: fh.Filename, Content: f}, nil
	}

	if in.Avatar, err = open(AvatarField); err == nil {
		in.VCard, err = open(VCardField)
	}
	if err != nil {
		closeFiles()
		return nil, noop, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Could not read uploaded file",
			"error":   err.Error(),
		})
	}
	return in, closeFiles, nil
}

func (h *CardHandler) serviceError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, services.ErrCardNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Card not found",
		})
	case errors.Is(err, storage.ErrInvalidFile):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid file",
			"error":   err.Error(),
		})
	}
	log.Errorf("%s: %v", message, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// firstFile ignores the empty part browsers send when no file was chosen.
func firstFile(files []*multipart.FileHeader) *multipart.FileHeader {
	for _, fh := range files {
		if fh.Filename != "" || fh.Size > 0 {
			return fh
		}
	}
	return nil
}
