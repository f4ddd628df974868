// Package ui defines the presentation hooks the headless views call into:
// toasts, route changes and confirmation prompts.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Level is a toast severity.
type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Error   Level = "error"
)

// Routes the views navigate between.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
)

// CardRoute is the public preview route for a card.
func CardRoute(id string) string { return "/card/" + id }

// Notifier shows transient messages.
type Notifier interface {
	Notify(level Level, message string)
}

// Navigator changes the current route.
type Navigator interface {
	Navigate(route string)
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// ConsoleNotifier prints toasts to a writer.
type ConsoleNotifier struct {
	W io.Writer
}

// Notify implements Notifier.
func (n ConsoleNotifier) Notify(level Level, message string) {
	prefix := map[Level]string{Success: "✅", Info: "ℹ️", Error: "⚠️"}[level]
	fmt.Fprintf(n.W, "%s %s\n", prefix, message)
}

// ConsoleConfirmer reads y/n answers from In after writing the question to Out.
type ConsoleConfirmer struct {
	In  io.Reader
	Out io.Writer

	once   sync.Once
	reader *bufio.Reader
}

// Confirm implements Confirmer. Anything but "y" or "yes" is a no.
func (c *ConsoleConfirmer) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.once.Do(func() { c.reader = bufio.NewReader(c.In) })
	fmt.Fprintf(c.Out, "%s [y/N] ", question)
	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// AutoConfirmer answers every question with Answer.
type AutoConfirmer struct {
	Answer bool
}

// Confirm implements Confirmer.
func (a AutoConfirmer) Confirm(context.Context, string) (bool, error) { return a.Answer, nil }

// Router records the current route.
type Router struct {
	mu      sync.Mutex
	current string
	history []string
}

// Navigate implements Navigator.
func (r *Router) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = route
	r.history = append(r.history, route)
}

// Current returns the last route navigated to.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns every route navigated to, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}
