// Package cmd implements the permstore CLI commands.
package cmd

import (
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/permstore/application/config"
	"github.com/reglet-dev/permstore/application/permission"
	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/ports"
	"github.com/reglet-dev/permstore/infrastructure/bookmark"
	"github.com/reglet-dev/permstore/infrastructure/codec"
	"github.com/reglet-dev/permstore/infrastructure/grantstore"
	"github.com/reglet-dev/permstore/infrastructure/parser"
	"github.com/reglet-dev/permstore/infrastructure/prompter"
	"github.com/reglet-dev/permstore/log"
)

// Version is set at build time
var Version = "0.1.0"

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

// app carries global flags and the composition root shared by subcommands.
type app struct {
	configPath string
	storePath  string
	keyPath    string
	verbose    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewRootCommand builds the permstore command tree reading from in and
// writing to out and errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "permstore",
		Short: "Persistent filesystem grants",
		Long: `permstore records access grants for files and directories as
authenticated tokens and re-activates them on every start.

A grant survives restarts until it is revoked or the resource it names
is replaced.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath(), "Config file")
	root.PersistentFlags().StringVar(&a.storePath, "store", "", "Permission store file (overrides config)")
	root.PersistentFlags().StringVar(&a.keyPath, "key", "", "Token key file (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newGrantCommand(a),
		newActivateCommand(a),
		newListCommand(a),
		newRevokeCommand(a),
		newSchemaCommand(a),
	)
	return root
}

// Execute runs the root command against the process streams.
func Execute() error {
	root := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	err := root.Execute()
	if err != nil {
		_, _ = errColor.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".permstore", "config.yaml")
}

func (a *app) loadConfig() (entities.Config, error) {
	cfg, err := config.NewLoader(parser.NewYamlConfigParser()).Load(a.configPath)
	if err != nil {
		return cfg, err
	}
	// Flags win over the file.
	if a.storePath != "" {
		cfg.StorePath = a.storePath
	}
	if a.keyPath != "" {
		cfg.KeyPath = a.keyPath
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func (a *app) logger(cfg entities.Config) *slog.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return log.NewLogger(a.errOut, log.WithLevel(level), log.WithFormat(cfg.LogFormat))
}

func (a *app) durable(cfg entities.Config) (ports.DurableStore, error) {
	fileStore := grantstore.NewFileStore(grantstore.WithPath(cfg.StorePath))
	if cfg.SealIdentityPath == "" {
		return fileStore, nil
	}
	identity, err := grantstore.LoadOrCreateIdentity(cfg.SealIdentityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load seal identity: %w", err)
	}
	return grantstore.NewSealedStore(fileStore, identity), nil
}

// withStore opens the permission store, runs fn and closes the store. A
// failed final flush is reported alongside fn's error.
func (a *app) withStore(fn func(*permission.Store) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger := a.logger(cfg)

	key, err := bookmark.LoadOrCreateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("failed to load token key: %w", err)
	}
	issuer, err := bookmark.NewIssuer(key)
	if err != nil {
		return err
	}
	durable, err := a.durable(cfg)
	if err != nil {
		return err
	}

	opts := []permission.Option{
		permission.WithLogger(logger),
		permission.WithCodec(codec.New(codec.WithKey(key))),
		permission.WithSymlinkResolution(cfg.ResolveSymlinks),
		permission.WithPruneAfter(cfg.PruneAfterFailures),
	}
	if cfg.WorkingDirectory != "" {
		opts = append(opts, permission.WithWorkingDirectory(cfg.WorkingDirectory))
	}
	store := permission.Open(issuer, durable, opts...)

	runErr := fn(store)
	if closeErr := store.Close(); closeErr != nil {
		return stdErrors.Join(runErr, fmt.Errorf("failed to save permission store: %w", closeErr))
	}
	return runErr
}

func (a *app) newPrompter() *prompter.CliPrompter {
	return prompter.NewCliPrompter(a.in, a.out)
}
