// Package cardform is the create/edit form for a card: controlled field state,
// attachment selection with content checks, avatar preview and submission.
package cardform

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"niucard/internal/api"
	"niucard/internal/ui"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Messages shown to the user.
const (
	MsgInvalidImage = "please choose a valid image (png, jpg, jpeg)"
	MsgInvalidVCard = "please choose a valid vcf file"
	MsgCreated      = "card created"
	MsgUpdated      = "card updated"
	MsgSaveFailed   = "failed to save card, please try again later"
)

var (
	// ErrSubmitting is returned by Submit while a previous submission is in flight.
	ErrSubmitting = errors.New("submission already in progress")
	// ErrInvalidFile is returned when a selected attachment fails its content check.
	ErrInvalidFile = errors.New("invalid file")
)

var imageTypes = map[string][]string{
	"image/png":  {".png"},
	"image/jpeg": {".jpg", ".jpeg"},
	"image/gif":  {".gif"},
}

// Fields is the editable text of a card.
type Fields struct {
	Name       string `validate:"required,max=100"`
	Email      string `validate:"required,email"`
	Birthday   string `validate:"omitempty,datetime=2006-01-02"`
	Profession string `validate:"omitempty,max=100"`
	LineLink   string `validate:"omitempty,url"`
	FBLink     string `validate:"omitempty,url"`
}

// Attachment is a selected local file.
type Attachment struct {
	Filename string
	MIME     string
	Content  []byte
}

// Deps are the collaborators a Form needs.
type Deps struct {
	Client   *api.Client
	Token    string
	Notifier ui.Notifier
	// FS is where selected files are read from; nil means the OS filesystem.
	FS        afero.Fs
	OnSuccess func()
	OnCancel  func()
}

// Form holds the state of one create or edit session.
type Form struct {
	Fields Fields

	deps     Deps
	editing  *api.Card
	validate *validator.Validate

	avatar  *Attachment
	vcard   *Attachment
	preview string

	mu      sync.Mutex
	loading bool
}

// New creates a Form. A nil editing card starts an empty create form; otherwise
// the fields are pre-filled from it.
func New(deps Deps, editing *api.Card) *Form {
	if deps.FS == nil {
		deps.FS = afero.NewOsFs()
	}
	f := &Form{deps: deps, validate: validator.New()}
	if editing != nil {
		c := *editing
		f.editing = &c
		f.Fields = Fields{
			Name:       c.Name,
			Email:      c.Email,
			Birthday:   c.Birthday,
			Profession: c.Profession,
			LineLink:   c.LineLink,
			FBLink:     c.FBLink,
		}
	}
	return f
}

// Editing returns the card being edited, or nil for a create form.
func (f *Form) Editing() *api.Card { return f.editing }

// Title is the heading for the form.
func (f *Form) Title() string {
	if f.editing != nil {
		return "Edit card"
	}
	return "New card"
}

// SelectAvatar picks an avatar image. Non-images clear the selection and the
// preview, and raise an error toast.
func (f *Form) SelectAvatar(path string) error {
	att, err := f.read(path)
	if err == nil && !isImage(att) {
		err = fmt.Errorf("%w: %s is %s", ErrInvalidFile, path, att.MIME)
	}
	if err != nil {
		f.avatar = nil
		f.preview = ""
		f.notify(ui.Error, MsgInvalidImage)
		return err
	}
	f.avatar = att
	f.preview = "data:" + att.MIME + ";base64," + base64.StdEncoding.EncodeToString(att.Content)
	return nil
}

// SelectVCard picks the vCard attachment. Anything but a text/vcard .vcf file
// clears the selection and raises an error toast.
func (f *Form) SelectVCard(path string) error {
	att, err := f.read(path)
	if err == nil && !isVCard(att) {
		err = fmt.Errorf("%w: %s is %s", ErrInvalidFile, path, att.MIME)
	}
	if err != nil {
		f.vcard = nil
		f.notify(ui.Error, MsgInvalidVCard)
		return err
	}
	f.vcard = att
	return nil
}

// Avatar returns the selected avatar, if any.
func (f *Form) Avatar() *Attachment { return f.avatar }

// VCard returns the selected vCard, if any.
func (f *Form) VCard() *Attachment { return f.vcard }

// PreviewURL is the image to show above the form: the newly selected avatar as a
// data URL, else the edited card's current avatar, else "".
func (f *Form) PreviewURL() string {
	if f.preview != "" {
		return f.preview
	}
	if f.avatar == nil && f.editing != nil && f.editing.Avatar != "" && f.deps.Client != nil {
		return f.deps.Client.AssetURL(f.editing.Avatar)
	}
	return ""
}

// Loading reports whether a submission is in flight.
func (f *Form) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Validate checks the fields the way the server will.
func (f *Form) Validate() error {
	return f.validate.Struct(f.Fields)
}

// MultipartForm builds the request body. Files are only included when selected,
// so an edit without new files keeps the card's current ones.
func (f *Form) MultipartForm() *api.Form {
	form := api.NewForm().
		Set("name", f.Fields.Name).
		Set("email", f.Fields.Email).
		Set("birthday", f.Fields.Birthday).
		Set("profession", f.Fields.Profession).
		Set("line_link", f.Fields.LineLink).
		Set("fb_link", f.Fields.FBLink)
	if f.vcard != nil {
		form.AddFile("cardVcf", f.vcard.Filename, f.vcard.Content)
	}
	if f.avatar != nil {
		form.AddFile("avatar", f.avatar.Filename, f.avatar.Content)
	}
	return form
}

// Submit sends the form: PUT for an edit, POST for a new card. On success it
// toasts and calls OnSuccess; any failure collapses to one error toast.
func (f *Form) Submit(ctx context.Context) (*api.Card, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.loading = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
	}()

	if err := f.Validate(); err != nil {
		f.notify(ui.Error, MsgSaveFailed)
		return nil, err
	}

	var (
		card *api.Card
		err  error
		msg  string
	)
	if f.editing != nil {
		card, err = f.deps.Client.UpdateCard(ctx, f.editing.ID, f.MultipartForm(), f.deps.Token)
		msg = MsgUpdated
	} else {
		card, err = f.deps.Client.CreateCard(ctx, f.MultipartForm(), f.deps.Token)
		msg = MsgCreated
	}
	if err != nil {
		log.Debugf("card submit failed: %v", err)
		f.notify(ui.Error, MsgSaveFailed)
		return nil, err
	}

	f.notify(ui.Success, msg)
	if f.deps.OnSuccess != nil {
		f.deps.OnSuccess()
	}
	return card, nil
}

// Cancel abandons the form.
func (f *Form) Cancel() {
	if f.deps.OnCancel != nil {
		f.deps.OnCancel()
	}
}

func (f *Form) read(path string) (*Attachment, error) {
	content, err := afero.ReadFile(f.deps.FS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Attachment{
		Filename: filepath.Base(path),
		MIME:     mimetype.Detect(content).String(),
		Content:  content,
	}, nil
}

func (f *Form) notify(level ui.Level, msg string) {
	if f.deps.Notifier != nil {
		f.deps.Notifier.Notify(level, msg)
	}
}

func isImage(att *Attachment) bool {
	mime := strings.SplitN(att.MIME, ";", 2)[0]
	exts, ok := imageTypes[mime]
	if !ok {
		return false
	}
	ext := strings.ToLower(filepath.Ext(att.Filename))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

func isVCard(att *Attachment) bool {
	mime := strings.SplitN(att.MIME, ";", 2)[0]
	return mime == "text/vcard" && strings.EqualFold(filepath.Ext(att.Filename), ".vcf")
}
