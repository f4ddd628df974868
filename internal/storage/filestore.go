// Package storage keeps uploaded avatars and vCards on disk and maps them to the
// public URL paths stored on cards.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// AvatarPrefix is the public URL prefix for stored avatars.
	AvatarPrefix = "/static/avatars/"
	// VCardPrefix is the public URL prefix for stored vCards.
	VCardPrefix = "/static/vcf/"
)

// ErrInvalidFile is returned when an upload's name or content is not allowed for its slot.
var ErrInvalidFile = errors.New("invalid file")

var (
	imageExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}
	imageTypes      = map[string]bool{"image/png": true, "image/jpeg": true, "image/gif": true}
	unsafeChars     = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

// FileStore writes uploads beneath a root directory:
// <root>/avatars/<cardID>-<rev>-<name> and <root>/vcf/<cardID>-<rev>.vcf, where rev
// is random per save. A save never overwrites an existing file.
type FileStore struct {
	fs   afero.Fs
	root string
}

// NewFileStore creates a FileStore rooted at root on fs.
func NewFileStore(fs afero.Fs, root string) *FileStore {
	return &FileStore{fs: fs, root: root}
}

// AllowedFile reports whether filename carries one of the accepted extensions
// (png, jpg, jpeg, gif, vcf).
func AllowedFile(filename string) bool {
	ext := extension(filename)
	return imageExtensions[ext] || ext == "vcf"
}

// ValidateAvatar checks the avatar upload name.
func ValidateAvatar(filename string) error {
	if !imageExtensions[extension(filename)] {
		return fmt.Errorf("%w: avatar %q must be png, jpg, jpeg or gif", ErrInvalidFile, filename)
	}
	return nil
}

// ValidateVCard checks the vCard upload name.
func ValidateVCard(filename string) error {
	if extension(filename) != "vcf" {
		return fmt.Errorf("%w: vcard %q must have a .vcf extension", ErrInvalidFile, filename)
	}
	return nil
}

// ImageType returns the sniffed type of data and whether it is an accepted
// avatar image (png, jpeg or gif).
func ImageType(data []byte) (string, bool) {
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if imageTypes[m.String()] {
			return m.String(), true
		}
	}
	return mtype.String(), false
}

// SaveAvatar stores an avatar for cardID and returns its public URL path. The
// content must sniff as an accepted image whatever the extension says.
func (s *FileStore) SaveAvatar(cardID string, up Upload) (string, error) {
	if err := ValidateAvatar(up.Filename); err != nil {
		return "", err
	}
	data, err := io.ReadAll(up.Content)
	if err != nil {
		return "", fmt.Errorf("failed to read avatar: %w", err)
	}
	if mime, ok := ImageType(data); !ok {
		return "", fmt.Errorf("%w: avatar %q is %s, not an image", ErrInvalidFile, up.Filename, mime)
	}
	name := cardID + "-" + revision() + "-" + SecureFilename(up.Filename)
	if err := s.write(filepath.Join(s.root, "avatars", name), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save avatar: %w", err)
	}
	return AvatarPrefix + name, nil
}

// SaveVCard stores a vCard for cardID and returns its public URL path.
func (s *FileStore) SaveVCard(cardID string, up Upload) (string, error) {
	if err := ValidateVCard(up.Filename); err != nil {
		return "", err
	}
	name := cardID + "-" + revision() + ".vcf"
	if err := s.write(filepath.Join(s.root, "vcf", name), up.Content); err != nil {
		return "", fmt.Errorf("failed to save vcard: %w", err)
	}
	return VCardPrefix + name, nil
}

// Remove deletes the file behind a public URL path. Paths outside the managed
// prefixes, and files that are already gone, are ignored.
func (s *FileStore) Remove(urlPath string) error {
	full, ok := s.Resolve(urlPath)
	if !ok {
		return nil
	}
	if err := s.fs.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", urlPath, err)
	}
	return nil
}

// Open opens a stored file by its public URL path.
func (s *FileStore) Open(urlPath string) (afero.File, error) {
	full, ok := s.Resolve(urlPath)
	if !ok {
		return nil, fmt.Errorf("%s: %w", urlPath, os.ErrNotExist)
	}
	return s.fs.Open(full)
}

// Resolve maps a public URL path to its location on the store's filesystem.
func (s *FileStore) Resolve(urlPath string) (string, bool) {
	var dir, name string
	switch {
	case strings.HasPrefix(urlPath, AvatarPrefix):
		dir, name = "avatars", strings.TrimPrefix(urlPath, AvatarPrefix)
	case strings.HasPrefix(urlPath, VCardPrefix):
		dir, name = "vcf", strings.TrimPrefix(urlPath, VCardPrefix)
	default:
		return "", false
	}
	if name == "" || name != path.Base(name) || name == ".." {
		return "", false
	}
	return filepath.Join(s.root, dir, name), true
}

func (s *FileStore) write(full string, content io.Reader) error {
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := s.fs.Create(full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		if rmErr := s.fs.Remove(full); rmErr != nil {
			log.Warnf("failed to clean up partial file %s: %v", full, rmErr)
		}
		return err
	}
	return f.Close()
}

// SecureFilename reduces an uploaded name to a safe base name.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

func revision() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}
