// Command cardctl manages digital business cards from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"niucard/internal/api"
	"niucard/internal/dashboard"
	"niucard/internal/session"
	"niucard/internal/ui"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultServer = "http://localhost:5001"

var errNotLoggedIn = errors.New("not logged in, run `cardctl login` first")

var (
	// Global flags
	verbose     bool
	sessionPath string
	timeout     time.Duration

	// settings resolves --server against CARDCTL_SERVER.
	settings *viper.Viper

	// appFS backs the session file and attachment reads.
	appFS afero.Fs = afero.NewOsFs()
)

// newRootCmd builds the command tree. Flag variables are reset on every call.
func newRootCmd() *cobra.Command {
	settings = viper.New()
	settings.SetEnvPrefix("cardctl")
	settings.AutomaticEnv()
	settings.SetDefault("server", defaultServer)

	rootCmd := &cobra.Command{
		Use:   "cardctl",
		Short: "Manage digital business cards",
		Long: `cardctl talks to a niucard server to register, log in and manage your
digital business cards.

The server defaults to ` + defaultServer + ` and can be changed with --server
or the CARDCTL_SERVER environment variable.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(cmd.ErrOrStderr())
			log.SetLevel(log.WarnLevel)
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("server", defaultServer, "Server base URL (or set CARDCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", session.DefaultPath(), "Session file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	_ = settings.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newCardsCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every command works with.
type env struct {
	client *api.Client
	store  *session.Store
	notify ui.Notifier
	router *ui.Router
}

func newEnv(cmd *cobra.Command) *env {
	server := strings.TrimRight(settings.GetString("server"), "/")
	log.Debugf("using server %s", server)
	return &env{
		client: api.NewClient(server),
		store:  session.NewStore(appFS, sessionPath),
		notify: ui.ConsoleNotifier{W: cmd.ErrOrStderr()},
		router: &ui.Router{},
	}
}

func (e *env) dashboard(confirmer ui.Confirmer) *dashboard.Dashboard {
	return dashboard.New(dashboard.Deps{
		Client:    e.client,
		Session:   e.store,
		Notifier:  e.notify,
		Navigator: e.router,
		Confirmer: confirmer,
		FS:        appFS,
	})
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
