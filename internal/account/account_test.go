package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"niucard/internal/api"
	"niucard/internal/session"
	"niucard/internal/ui"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier is a mock implementation of ui.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(level ui.Level, message string) {
	m.Called(level, message)
}

func newPages(t *testing.T) (*Pages, *MockNotifier, *ui.Router) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/api/register":
			if body["username"] == "taken" {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"message":"username already exists"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"message":"user registered"}`))
		case "/api/login":
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"message":"ok","access_token":"tok","username":"` + body["username"] + `"}`))
		}
	}))
	t.Cleanup(srv.Close)

	n := new(MockNotifier)
	router := &ui.Router{}
	return &Pages{
		Client:    api.NewClient(srv.URL),
		Session:   session.NewStore(afero.NewMemMapFs(), "/session.json"),
		Notifier:  n,
		Navigator: router,
	}, n, router
}

func TestRegister(t *testing.T) {
	p, n, router := newPages(t)
	n.On("Notify", ui.Success, MsgRegistered).Once()

	require.NoError(t, p.Register(context.Background(), "alice", "secret", "alice@example.com"))
	assert.Equal(t, ui.RouteLogin, router.Current())
	n.AssertExpectations(t)
}

func TestRegister_Failure(t *testing.T) {
	p, n, router := newPages(t)
	n.On("Notify", ui.Error, MsgRegisterFailed).Once()

	err := p.Register(context.Background(), "taken", "secret", "x@example.com")
	assert.Error(t, err)
	assert.Empty(t, router.History())
	n.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	p, n, router := newPages(t)
	n.On("Notify", ui.Success, MsgLoggedIn).Once()

	require.NoError(t, p.Login(context.Background(), "alice", "secret"))
	assert.Equal(t, ui.RouteDashboard, router.Current())

	sess, err := p.Session.Load()
	require.NoError(t, err)
	assert.Equal(t, session.Session{Token: "tok", Username: "alice"}, sess)
	n.AssertExpectations(t)
}

func TestLogin_BadCredentials(t *testing.T) {
	p, n, router := newPages(t)
	n.On("Notify", ui.Error, MsgLoginFailed).Once()

	err := p.Login(context.Background(), "alice", "wrong")
	assert.True(t, api.IsUnauthorized(err))
	assert.Empty(t, router.History())
	assert.Empty(t, p.Session.Token())
	n.AssertExpectations(t)
}
