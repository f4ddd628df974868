// Package account drives the register and login pages.
package account

import (
	"context"

	"niucard/internal/api"
	"niucard/internal/session"
	"niucard/internal/ui"

	log "github.com/sirupsen/logrus"
)

// Messages shown to the user.
const (
	MsgRegistered     = "registered, please log in"
	MsgRegisterFailed = "registration failed, please check your details"
	MsgLoggedIn       = "welcome back"
	MsgLoginFailed    = "login failed"
)

// Pages are the account actions bound to their collaborators.
type Pages struct {
	Client    *api.Client
	Session   *session.Store
	Notifier  ui.Notifier
	Navigator ui.Navigator
}

// Register creates an account with a single request, then sends the user to login.
func (p *Pages) Register(ctx context.Context, username, password, email string) error {
	if err := p.Client.Register(ctx, username, password, email); err != nil {
		log.Debugf("register %s failed: %v", username, err)
		p.Notifier.Notify(ui.Error, MsgRegisterFailed)
		return err
	}
	p.Notifier.Notify(ui.Success, MsgRegistered)
	p.Navigator.Navigate(ui.RouteLogin)
	return nil
}

// Login stores the returned token and opens the dashboard.
func (p *Pages) Login(ctx context.Context, username, password string) error {
	res, err := p.Client.Login(ctx, username, password)
	if err == nil {
		err = p.Session.Save(session.Session{Token: res.AccessToken, Username: res.Username})
	}
	if err != nil {
		log.Debugf("login %s failed: %v", username, err)
		p.Notifier.Notify(ui.Error, MsgLoginFailed)
		return err
	}
	p.Notifier.Notify(ui.Success, MsgLoggedIn)
	p.Navigator.Navigate(ui.RouteDashboard)
	return nil
}
