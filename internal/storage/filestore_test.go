package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngData  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	jpegData = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	htmlData = []byte("<html><body><script>alert(document.cookie)</script></body></html>")
)

func TestFileStore_SaveAndRemoveAvatar(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "static")

	urlPath, err := store.SaveAvatar("card-1", Upload{Filename: "../My Photo.PNG", Content: bytes.NewReader(pngData)})
	require.NoError(t, err)
	assert.Regexp(t, `^/static/avatars/card-1-[0-9a-f]{8}-My_Photo\.PNG$`, urlPath)

	full, ok := store.Resolve(urlPath)
	require.True(t, ok)
	data, err := afero.ReadFile(fs, full)
	require.NoError(t, err)
	assert.Equal(t, pngData, data)

	f, err := store.Open(urlPath)
	require.NoError(t, err)
	opened, err := io.ReadAll(f)
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, pngData, opened)

	require.NoError(t, store.Remove(urlPath))
	exists, err := afero.Exists(fs, full)
	require.NoError(t, err)
	assert.False(t, exists)

	// removing twice is not an error
	assert.NoError(t, store.Remove(urlPath))
}

func TestFileStore_SaveVCardUsesCardID(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "static")

	urlPath, err := store.SaveVCard("card-9", Upload{Filename: "whatever.vcf", Content: strings.NewReader("BEGIN:VCARD")})
	require.NoError(t, err)
	assert.Regexp(t, `^/static/vcf/card-9-[0-9a-f]{8}\.vcf$`, urlPath)

	full, _ := store.Resolve(urlPath)
	exists, err := afero.Exists(fs, full)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileStore_SavesNeverReuseAName(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "static")

	first, err := store.SaveAvatar("c1", Upload{Filename: "me.png", Content: bytes.NewReader(pngData)})
	require.NoError(t, err)
	second, err := store.SaveAvatar("c1", Upload{Filename: "me.png", Content: bytes.NewReader(pngData)})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	full, _ := store.Resolve(first)
	exists, _ := afero.Exists(fs, full)
	assert.True(t, exists)
}

func TestFileStore_SaveAvatarChecksContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "static")

	_, err := store.SaveAvatar("c", Upload{Filename: "evil.png", Content: bytes.NewReader(htmlData)})
	assert.ErrorIs(t, err, ErrInvalidFile)
	exists, _ := afero.DirExists(fs, "static/avatars")
	assert.False(t, exists)

	// extension and content need not agree as long as both are images
	_, err = store.SaveAvatar("c", Upload{Filename: "photo.png", Content: bytes.NewReader(jpegData)})
	assert.NoError(t, err)
}

func TestImageType(t *testing.T) {
	mime, ok := ImageType(pngData)
	assert.True(t, ok)
	assert.Equal(t, "image/png", mime)

	mime, ok = ImageType(jpegData)
	assert.True(t, ok)
	assert.Equal(t, "image/jpeg", mime)

	mime, ok = ImageType(htmlData)
	assert.False(t, ok)
	assert.Contains(t, mime, "text/html")
}

func TestFileStore_RejectsDisallowedExtensions(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "static")

	_, err := store.SaveAvatar("c", Upload{Filename: "shell.php", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = store.SaveAvatar("c", Upload{Filename: "card.vcf", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = store.SaveVCard("c", Upload{Filename: "photo.png", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestFileStore_ResolveRejectsForeignPaths(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "static")

	for _, p := range []string{"/etc/passwd", "/static/avatars/", "/static/avatars/../../secret", "https://cdn.example.com/a.png"} {
		_, ok := store.Resolve(p)
		assert.False(t, ok, p)
		assert.NoError(t, store.Remove(p), p)
	}
}

func TestAllowedFile(t *testing.T) {
	assert.True(t, AllowedFile("a.JPG"))
	assert.True(t, AllowedFile("a.vcf"))
	assert.False(t, AllowedFile("noext"))
	assert.False(t, AllowedFile("a.svg"))
}

func TestSecureFilename(t *testing.T) {
	assert.Equal(t, "passwd", SecureFilename("../../etc/passwd"))
	assert.Equal(t, "a_b.png", SecureFilename(`C:\Users\x\a b.png`))
	assert.Equal(t, "file", SecureFilename("..."))
}
