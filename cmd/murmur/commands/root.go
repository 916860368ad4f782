package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"murmur/internal/app"
	"murmur/internal/domain"
	"murmur/internal/platform/privacylog"
	"murmur/internal/session"
)

var (
	home       string
	serverURL  string
	username   string
	passphrase string
	verbose    bool

	wire *app.Wire
)

// Execute runs the murmur CLI.
func Execute() error {
	root := &cobra.Command{
		Use:           "murmur",
		Short:         "End-to-end encrypted messaging CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".murmur")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			var err error
			wire, err = app.NewWire(app.Config{
				Home:      home,
				ServerURL: serverURL,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if wire != nil {
				wire.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.murmur)")
	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "backend base URL")
	root.PersistentFlags().StringVarP(&username, "user", "u", "", "your user id")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the local keys")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log session activity to stderr")

	root.AddCommand(loginCmd(), fingerprintCmd(), sendCmd(), recvCmd(), peersCmd())
	return root.Execute()
}

// newSession builds a logged-in orchestrator for the current flags.
func newSession(cmd *cobra.Command) (*session.Orchestrator, error) {
	if username == "" {
		return nil, fmt.Errorf("--user required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p)")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(privacylog.WrapHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	))

	orch, err := wire.Orchestrator(log)
	if err != nil {
		return nil, err
	}
	if err := orch.Login(cmd.Context(), domain.UserID(username), passphrase); err != nil {
		return nil, err
	}
	return orch, nil
}
