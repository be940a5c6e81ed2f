package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ashureev/teamconsole/internal/apiclient"
	"github.com/ashureev/teamconsole/internal/appstate"
	"github.com/ashureev/teamconsole/internal/auth"
	"github.com/ashureev/teamconsole/internal/config"
	"github.com/ashureev/teamconsole/internal/navigation"
	"github.com/ashureev/teamconsole/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "unknown"
)

// cellPixels approximates one terminal column in CSS pixels, so breakpoints
// keep their meaning.
const cellPixels = 8

var errNotSignedIn = errors.New("not signed in, run `console login` first")

// app is what every command shares for one invocation.
type app struct {
	cfg    *config.Config
	output string

	openStorage  func(path string) (store.Storage, error)
	terminalCols func() int

	storage store.Storage
	state   *appstate.Store
	nav     *navigation.Tracker
	client  *apiclient.Client
}

func newApp(cfg *config.Config) *app {
	return &app{
		cfg:    cfg,
		output: "text",
		openStorage: func(path string) (store.Storage, error) {
			return store.NewSQLite(path)
		},
		terminalCols: func() int {
			fd := int(os.Stdout.Fd())
			if !term.IsTerminal(fd) {
				return 0
			}
			cols, _, err := term.GetSize(fd)
			if err != nil {
				return 0
			}
			return cols
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "console",
		Short: "Manage AI teams and agents from the terminal",
		Long: `console talks to the team console backend.

Quick Start:
  console login --email a@b.com       # sign in
  console teams list                  # list your teams
  console agents list <team-id>       # list a team's agents
  console chat <agent-id>             # chat with an agent`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text or yaml")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTeamsCmd(a),
		newAgentsCmd(a),
		newChatCmd(a),
		newLanguageCmd(a),
	)
	return root
}

// setup opens durable storage, loads preferences and restores the session.
func (a *app) setup(ctx context.Context) error {
	if a.output != "text" && a.output != "yaml" {
		return fmt.Errorf("unknown output format %q", a.output)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	storage, err := a.openStorage(a.cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	a.storage = storage

	initial := appstate.Load(ctx, storage)
	// CONSOLE_LANGUAGE only applies until the user picks a language.
	if _, stored, err := storage.Get(ctx, store.KeyLanguage); err == nil && !stored && a.cfg.Language != "" {
		initial.Language = a.cfg.Language
	}
	a.state = appstate.NewStore(initial)
	a.state.Subscribe(appstate.PersistPreferences(storage, initial))
	a.nav = navigation.NewTracker()

	if cols := a.terminalCols(); cols > 0 {
		a.state.Dispatch(appstate.SetWidth{Width: cols * cellPixels})
	}

	a.client, err = apiclient.New(a.cfg.APIURL, apiclient.WithTokenSource(a.state.Token))
	if err != nil {
		return err
	}

	session, err := auth.RestoreSession(ctx, a.client, storage)
	if err != nil {
		slog.Warn("Failed to restore session", "error", err)
	}
	if session != nil {
		a.state.Dispatch(appstate.SetSession{Session: session})
	}
	return nil
}

func (a *app) teardown() error {
	if a.storage == nil {
		return nil
	}
	err := a.storage.Close()
	a.storage = nil
	return err
}

func (a *app) requireSession() error {
	if !a.state.State().Authenticated() {
		return errNotSignedIn
	}
	return nil
}

// errorMessage prefers the backend's message for HTTP errors.
func errorMessage(err error) string {
	var httpErr *apiclient.HTTPError
	if errors.As(err, &httpErr) {
		if msg := httpErr.Message(); msg != "" {
			return fmt.Sprintf("%s (%d)", msg, httpErr.Status)
		}
	}
	return err.Error()
}

func writeln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
