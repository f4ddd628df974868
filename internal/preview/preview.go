// Package preview is the public, read-only view of a single card.
package preview

import (
	"context"
	"fmt"
	"io"
	"sync"

	"niucard/internal/api"

	log "github.com/sirupsen/logrus"
)

// State is where a Page is in its lifecycle.
type State int

const (
	Loading State = iota
	Loaded
	NotFound
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "not found"
	}
}

// Page loads and renders one card. No session is needed.
type Page struct {
	client *api.Client

	mu    sync.Mutex
	state State
	card  *api.Card
}

// New creates a Page in the Loading state.
func New(client *api.Client) *Page {
	return &Page{client: client}
}

// Load fetches card id. Any failure, not only a 404, leaves the page NotFound.
func (p *Page) Load(ctx context.Context, id string) State {
	p.mu.Lock()
	p.state = Loading
	p.card = nil
	p.mu.Unlock()

	card, err := p.client.GetCard(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		log.Debugf("loading card %s failed: %v", id, err)
		p.state = NotFound
		return p.state
	}
	p.card = card
	p.state = Loaded
	return p.state
}

// State returns the current state.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Card returns the loaded card, or nil.
func (p *Page) Card() *api.Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.card
}

// Render writes the page as text. Asset paths are resolved against the server.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	state, card := p.state, p.card
	p.mu.Unlock()

	switch state {
	case Loading:
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	case NotFound:
		_, err := fmt.Fprintln(w, "Card not found")
		return err
	}

	lines := []string{card.Name}
	if card.Profession != "" {
		lines = append(lines, card.Profession)
	}
	if card.Email != "" {
		lines = append(lines, "✉️  "+card.Email)
	}
	if card.Birthday != "" {
		lines = append(lines, "🎂 "+card.Birthday)
	}
	if card.Avatar != "" {
		lines = append(lines, "🖼  "+p.client.AssetURL(card.Avatar))
	}
	lines = append(lines, "", "🔗 Links")
	if card.VCFPath != "" {
		lines = append(lines, "📇 vCard: "+p.client.AssetURL(card.VCFPath))
	}
	lines = append(lines,
		"💬 LINE: "+card.LineLink,
		"👥 Facebook: "+card.FBLink,
	)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
