package handlers

import (
	"errors"
	"io"
	"os"

	"niucard/internal/storage"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// StaticHandler serves uploaded avatars and vCards.
type StaticHandler struct {
	files *storage.FileStore
}

// NewStaticHandler creates a new StaticHandler.
func NewStaticHandler(files *storage.FileStore) *StaticHandler {
	return &StaticHandler{files: files}
}

// RegisterRoutes registers the static file routes.
func (h *StaticHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/static/avatars/:file", h.HandleAvatar)
	router.Get("/static/vcf/:file", h.HandleVCard)
}

// HandleAvatar serves an avatar with its sniffed image type. Anything that does
// not sniff as an accepted image is served as an opaque download type.
func (h *StaticHandler) HandleAvatar(c *fiber.Ctx) error {
	data, err := h.read(storage.AvatarPrefix + c.Params("file"))
	if err != nil {
		return h.missing(c, err)
	}
	contentType, ok := storage.ImageType(data)
	if !ok {
		log.Warnf("Serving non-image avatar %s as octet-stream (sniffed %s)", c.Path(), contentType)
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

// HandleVCard serves a vCard as a download.
func (h *StaticHandler) HandleVCard(c *fiber.Ctx) error {
	name := c.Params("file")
	data, err := h.read(storage.VCardPrefix + name)
	if err != nil {
		return h.missing(c, err)
	}
	c.Attachment(name)
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentType, "text/vcard")
	return c.Send(data)
}

func (h *StaticHandler) read(urlPath string) ([]byte, error) {
	f, err := h.files.Open(urlPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *StaticHandler) missing(c *fiber.Ctx, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "File not found"})
	}
	log.Errorf("Error reading static file %s: %v", c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Could not read file"})
}
