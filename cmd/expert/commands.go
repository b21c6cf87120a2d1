package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ithailevi/expert/application/services"
	"github.com/ithailevi/expert/infrastructure/config"
	"github.com/ithailevi/expert/infrastructure/di"
)

// globalFlags apply to every subcommand
type globalFlags struct {
	kbFile   string
	logLevel string
}

// NewRootCommand builds the expert command tree
func NewRootCommand(ctx context.Context) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "expert",
		Short: "Query and serve a semantic network knowledge base",
		Long: `expert loads a knowledge base of concepts, relations and facts from a
YAML file and answers questions about it, either once from the command line
or continuously over HTTP.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.kbFile, "kb", "", "knowledge base YAML file (defaults to KB_FILE)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (defaults to LOG_LEVEL)")

	root.AddCommand(
		newSnapshotCommand(ctx, flags),
		newAskCommand(ctx, flags),
		newAnyCommand(ctx, flags),
		newServeCommand(ctx, flags),
	)
	return root
}

// container loads configuration, applies flag overrides and wires the app
func (f *globalFlags) container(ctx context.Context, override func(*config.Config)) (*di.Container, error) {
	cfg, err := config.LoadConfigWith(func(c *config.Config) {
		if f.kbFile != "" {
			c.KBFile = f.kbFile
		}
		if f.logLevel != "" {
			c.LogLevel = f.logLevel
		}
		if override != nil {
			override(c)
		}
	})
	if err != nil {
		return nil, err
	}
	return di.InitializeContainer(ctx, cfg)
}

// oneShot is the override for commands that answer and exit
func oneShot(c *config.Config) {
	c.WatchKB = false
	c.EnableTracing = false
}

func newSnapshotCommand(ctx context.Context, flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the knowledge base as relation and concept records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q, want json or yaml", format)
			}
			c, err := flags.container(ctx, oneShot)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			snapshot := c.Service.Snapshot(ctx)
			out := cmd.OutOrStdout()
			if format == "yaml" {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(snapshot)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func newAskCommand(ctx context.Context, flags *globalFlags) *cobra.Command {
	var q services.AskQuery

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "List what every source reaches through a relation, or test one target",
		Example: `  expert ask --kb zoo.yaml --relation biggerThan --source elephant
  expert ask --kb zoo.yaml --relation smallerThan --source ant --target elephant`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.container(ctx, oneShot)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			result, err := c.Service.Ask(ctx, q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Holds != nil {
				_, err = fmt.Fprintln(out, strconv.FormatBool(*result.Holds))
				return err
			}
			for _, concept := range result.Concepts {
				if _, err := fmt.Fprintln(out, concept); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Relation, "relation", "", "relation id")
	cmd.Flags().StringSliceVar(&q.Sources, "source", nil, "source concept id, repeatable")
	cmd.Flags().StringVar(&q.Target, "target", "", "target concept id")
	cmd.MarkFlagRequired("relation")
	cmd.MarkFlagRequired("source")
	return cmd
}

func newAnyCommand(ctx context.Context, flags *globalFlags) *cobra.Command {
	var conceptID, relationID string

	cmd := &cobra.Command{
		Use:   "any",
		Short: "Print one concept linked to a concept through a relation, picked at random",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.container(ctx, oneShot)
			if err != nil {
				return err
			}
			defer c.Shutdown(ctx)

			linked, ok, err := c.Service.Any(ctx, conceptID, relationID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s has no %s links", conceptID, relationID)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), linked)
			return err
		},
	}
	cmd.Flags().StringVar(&conceptID, "concept", "", "concept id")
	cmd.Flags().StringVar(&relationID, "relation", "", "relation id")
	cmd.MarkFlagRequired("concept")
	cmd.MarkFlagRequired("relation")
	return cmd
}

func newServeCommand(ctx context.Context, flags *globalFlags) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge base over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.container(ctx, func(cfg *config.Config) {
				if addr != "" {
					cfg.ServerAddress = addr
				}
				if cmd.Flags().Changed("watch") {
					cfg.WatchKB = watch
				}
			})
			if err != nil {
				return err
			}
			return serve(ctx, c)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to SERVER_ADDRESS)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the knowledge base when its file changes")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts down gracefully
func serve(ctx context.Context, c *di.Container) error {
	srv := &http.Server{
		Addr:         c.Config.ServerAddress,
		Handler:      c.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if c.Watcher != nil {
		c.Watcher.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("Starting server",
			zap.String("address", c.Config.ServerAddress),
			zap.String("environment", c.Config.Environment),
			zap.String("kbFile", c.Config.KBFile),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	c.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.Logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := c.Shutdown(shutdownCtx); err != nil {
		c.Logger.Error("Cleanup error", zap.Error(err))
	}
	return serveErr
}
