// Package cmd implements the luckyctl command tree. Commands go through the
// shared services layer, so retries, auth refresh and error classification
// behave exactly as they do for any other client of the API.
package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
	"github.com/KreatechIT/mrs-sub000/internal/client/loading"
	"github.com/KreatechIT/mrs-sub000/internal/client/notify"
	"github.com/KreatechIT/mrs-sub000/internal/client/offline"
	"github.com/KreatechIT/mrs-sub000/internal/client/services"
	"github.com/KreatechIT/mrs-sub000/internal/client/token"
	"github.com/KreatechIT/mrs-sub000/internal/shared/logger"
)

const cacheTTL = 5 * time.Minute

func NewRootCmd(version, buildDate string) *cobra.Command {
	var serverURL string
	var verbose bool
	root := &cobra.Command{
		Use:   "luckyctl",
		Short: "Lucky spin dashboard CLI",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	e := &env{serverURL: &serverURL, verbose: &verbose}
	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newAuthCmd(e))
	root.AddCommand(newItemsCmd(e))
	root.AddCommand(newSequencesCmd(e))
	root.AddCommand(newMembersCmd(e))
	return root
}

// env builds the client stack lazily so flag values are resolved after
// parsing, not at command construction.
type env struct {
	serverURL *string
	verbose   *bool

	log       *zap.Logger
	tokens    *token.Manager
	client    *api.Client
	auth      *services.AuthService
	items     *services.ItemsService
	sequences *services.SequencesService
	members   *services.MembersService
	notifier  *notify.Notifier
	tracker   *loading.Tracker
	monitor   *offline.Monitor
}

func (e *env) init(cmd *cobra.Command) error {
	if e.client != nil {
		return nil
	}
	level := "error"
	if *e.verbose {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return err
	}
	e.log = log

	store := token.NewStore(token.DefaultPath())
	e.tokens = token.NewManager(*e.serverURL, store, log)
	e.client = api.New(*e.serverURL, e.tokens, log)

	e.notifier = notify.New(log)
	e.notifier.AddListener(func(n notify.Notification) {
		if n.Level == notify.LevelError || n.Level == notify.LevelWarning {
			cmd.PrintErrf("%s: %s\n", n.Title, n.Message)
		}
	})
	e.client.AddErrorListener(func(pe *api.ProcessedError) {
		if pe.Type == api.ErrorTypeNetwork {
			e.notifier.Warning("Connection problem", pe.UserMessage)
		}
	})

	e.tracker = loading.NewTracker(log)
	e.monitor = offline.NewMonitor(*e.serverURL, offline.NewCache(cachePath()), log)

	e.auth = services.NewAuthService(e.client, e.tokens, log)
	e.items = services.NewItemsService(e.client, log)
	e.sequences = services.NewSequencesService(e.client, log)
	e.members = services.NewMembersService(e.client, log)
	return nil
}

func cachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mrs_cache.json"
	}
	return filepath.Join(home, ".mrs_cache.json")
}
