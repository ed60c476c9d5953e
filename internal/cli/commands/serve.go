package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/responder/internal/cli/config"
	"github.com/conduit-lang/responder/internal/fixtures"
	"github.com/conduit-lang/responder/internal/logging"
	"github.com/conduit-lang/responder/internal/paging"
	"github.com/conduit-lang/responder/internal/web/server"
)

type serveOptions struct {
	port int
	host string
}

// NewServeCommand creates the serve command.
func NewServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve [fixtures.yml]",
		Short: "Serve fixture collections over HTTP",
		Long: `Start the demo API over a YAML fixture file.

Routes:
  GET /api                     list collections
  GET /api/{collection}        paginated collection (page[number], page[size], cursor)
  GET /api/{collection}/{id}   single record

Every route accepts include, exclude and fields[type]. Send
Accept: application/vnd.api+json for JSON:API output.

Examples:
  responder serve shop.yml
  responder serve shop.yml --port 8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = opts.host
			}
			path := cfg.Fixtures
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errNoFixtures
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, path)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 3000, "Port to listen on (default from config)")
	cmd.Flags().StringVar(&opts.host, "host", "localhost", "Host to bind (default from config)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, path string) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ds, err := fixtures.Load(path)
	if err != nil {
		return err
	}

	codec, err := paging.NewCodec(cfg.CursorSecret, logger)
	if err != nil {
		return err
	}

	api, err := server.NewAPI(server.APIConfig{
		Dataset:     ds,
		Codec:       codec,
		Serializer:  cfg.Serializer,
		MaxDepth:    cfg.MaxDepth,
		PageSize:    cfg.PageSize,
		PrettyPrint: cfg.PrettyPrint,
		BaseURL:     cfg.Server.BaseURL,
		Messages:    cfg.Messages,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	srvConfig := server.DefaultConfig(api.Routes())
	srvConfig.Address = cfg.Server.Addr()
	srvConfig.Logger = logger
	srv, err := server.New(srvConfig)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Serving %d collections on http://%s\n", len(ds.Names()), srv.Addr())
	logger.Info("fixtures loaded", zap.String("path", path), zap.Strings("collections", ds.Names()))

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
