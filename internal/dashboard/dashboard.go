// Package dashboard holds the logged-in user's card list and orchestrates the
// create, edit, delete and preview actions on it. The list is a transient copy
// of the server's; it is replaced wholesale after every mutation.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"niucard/internal/api"
	"niucard/internal/cardform"
	"niucard/internal/session"
	"niucard/internal/ui"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Messages shown to the user.
const (
	MsgFetchFailed   = "failed to load cards, please log in again"
	MsgDeleted       = "card deleted"
	MsgDeleteFailed  = "delete failed"
	MsgConfirmDelete = "Delete this card?"
)

// Deps are the collaborators a Dashboard needs.
type Deps struct {
	Client    *api.Client
	Session   *session.Store
	Notifier  ui.Notifier
	Navigator ui.Navigator
	Confirmer ui.Confirmer
	// FS is passed to forms for reading attachments; nil means the OS filesystem.
	FS afero.Fs
}

// Dashboard is the card list view.
type Dashboard struct {
	deps Deps

	mu       sync.Mutex
	cards    []api.Card
	loading  bool
	form     *cardform.Form
	editCard *api.Card
}

// New creates a Dashboard.
func New(deps Deps) *Dashboard {
	return &Dashboard{deps: deps, loading: true}
}

// Mount sends the user to login when there is no session, otherwise loads the
// list. It reports whether the dashboard is usable.
func (d *Dashboard) Mount(ctx context.Context) bool {
	if d.token() == "" {
		d.deps.Navigator.Navigate(ui.RouteLogin)
		return false
	}
	return d.Fetch(ctx)
}

// Fetch reloads the list from the server. Any failure is treated as an expired
// session: the user is told to log in again and sent to the login route.
func (d *Dashboard) Fetch(ctx context.Context) bool {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	cards, err := d.deps.Client.ListCards(ctx, d.token())

	d.mu.Lock()
	d.loading = false
	if err == nil {
		d.cards = cards
	}
	d.mu.Unlock()

	if err != nil {
		log.Debugf("fetching cards failed: %v", err)
		d.deps.Notifier.Notify(ui.Error, MsgFetchFailed)
		d.deps.Navigator.Navigate(ui.RouteLogin)
		return false
	}
	return true
}

// Cards returns a copy of the cached list.
func (d *Dashboard) Cards() []api.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]api.Card(nil), d.cards...)
}

// Card finds a cached card by id.
func (d *Dashboard) Card(id string) (api.Card, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.cards {
		if c.ID == id {
			return c, true
		}
	}
	return api.Card{}, false
}

// Loading reports whether a fetch is in flight.
func (d *Dashboard) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// ShowForm reports whether a create/edit form is open.
func (d *Dashboard) ShowForm() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form != nil
}

// EditCard returns the card being edited, or nil.
func (d *Dashboard) EditCard() *api.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editCard
}

// NewCard opens an empty form.
func (d *Dashboard) NewCard(ctx context.Context) *cardform.Form {
	return d.openForm(ctx, nil)
}

// Edit opens a form pre-filled with card.
func (d *Dashboard) Edit(ctx context.Context, card api.Card) *cardform.Form {
	return d.openForm(ctx, &card)
}

func (d *Dashboard) openForm(ctx context.Context, card *api.Card) *cardform.Form {
	form := cardform.New(cardform.Deps{
		Client:   d.deps.Client,
		Token:    d.token(),
		Notifier: d.deps.Notifier,
		FS:       d.deps.FS,
		OnSuccess: func() {
			d.closeForm()
			d.Fetch(ctx)
		},
		OnCancel: d.closeForm,
	}, card)

	d.mu.Lock()
	d.form = form
	d.editCard = card
	d.mu.Unlock()
	return form
}

func (d *Dashboard) closeForm() {
	d.mu.Lock()
	d.form = nil
	d.editCard = nil
	d.mu.Unlock()
}

// RequestDelete asks for confirmation and, if given, deletes the card and reloads
// the list. It reports whether the card was deleted; a declined prompt is
// (false, nil) while a failed prompt or delete returns the error.
func (d *Dashboard) RequestDelete(ctx context.Context, id string) (bool, error) {
	ok, err := d.deps.Confirmer.Confirm(ctx, MsgConfirmDelete)
	if err != nil {
		return false, fmt.Errorf("failed to confirm delete: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := d.doDelete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Dashboard) doDelete(ctx context.Context, id string) error {
	if err := d.deps.Client.DeleteCard(ctx, id, d.token()); err != nil {
		log.Debugf("deleting card %s failed: %v", id, err)
		d.deps.Notifier.Notify(ui.Error, MsgDeleteFailed)
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	d.deps.Notifier.Notify(ui.Success, MsgDeleted)
	d.Fetch(ctx)
	return nil
}

// Preview navigates to the public page of a card.
func (d *Dashboard) Preview(id string) {
	d.deps.Navigator.Navigate(ui.CardRoute(id))
}

// Logout forgets the session and returns to login.
func (d *Dashboard) Logout() error {
	err := d.deps.Session.Clear()
	d.deps.Navigator.Navigate(ui.RouteLogin)
	return err
}

func (d *Dashboard) token() string {
	if d.deps.Session == nil {
		return ""
	}
	return d.deps.Session.Token()
}
