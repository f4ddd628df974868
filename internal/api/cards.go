package api

import (
	"context"
	"net/http"
	"net/url"
)

// Card is the backend's card representation.
type Card struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Birthday   string `json:"birthday"`
	Avatar     string `json:"avatar"`
	Profession string `json:"profession"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	LineLink   string `json:"line_link"`
	FBLink     string `json:"fb_link"`
	VCFPath    string `json:"vcf_path"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password, email string) error {
	body := map[string]string{"username": username, "password": password, "email": email}
	return c.MakeRequest(ctx, "/register", http.MethodPost, body, "", nil)
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.MakeRequest(ctx, "/login", http.MethodPost, body, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCards returns the cards owned by the token's user.
func (c *Client) ListCards(ctx context.Context, token string) ([]Card, error) {
	var cards []Card
	if err := c.MakeRequest(ctx, "/cards", http.MethodGet, nil, token, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard fetches any card by id without authentication.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	var card Card
	if err := c.MakeRequest(ctx, "/cards/"+url.PathEscape(id), http.MethodGet, nil, "", &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// CreateCard submits a new card as a multipart form.
func (c *Client) CreateCard(ctx context.Context, form *Form, token string) (*Card, error) {
	var card Card
	if err := c.MakeRequest(ctx, "/cards", http.MethodPost, form, token, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard replaces a card's fields from a multipart form.
func (c *Client) UpdateCard(ctx context.Context, id string, form *Form, token string) (*Card, error) {
	var card Card
	if err := c.MakeRequest(ctx, "/cards/"+url.PathEscape(id), http.MethodPut, form, token, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, id, token string) error {
	return c.MakeRequest(ctx, "/cards/"+url.PathEscape(id), http.MethodDelete, nil, token, nil)
}
