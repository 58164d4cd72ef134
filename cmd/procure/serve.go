package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-procure/components/lookups"
	"github.com/goliatone/go-procure/internal/registry"
	"github.com/goliatone/go-procure/internal/server"
	"github.com/goliatone/go-procure/internal/source"
	"github.com/goliatone/go-procure/pkg/api"
	"github.com/goliatone/go-procure/pkg/besoin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve form schemas, validation, the requisition table and lookups over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var serveWatch bool

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the forms document when it changes on disk")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.NewLive(ctx, loadRegistry, logger)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		BasePath:    cfg.Server.BasePath,
		PageSize:    cfg.Table.PageSize,
		Session:     cfg.Session,
		Collections: reg.Collections(),
	}, reg, catalogSource(client), besoinSource(client), logger)
	if err != nil {
		return err
	}
	handler, err := srv.Handler()
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("base_path", cfg.Server.BasePath))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if serveWatch {
		if cfg.Forms == "" || (source.Reader{}).KindOf(cfg.Forms) != source.KindFile {
			return fmt.Errorf("--watch needs a local forms file, got %q", cfg.Forms)
		}
		g.Go(func() error { return reg.Watch(gctx, cfg.Forms) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// catalogSource serves lookup collections straight from the API. A
// collection the API does not know is reported as unknown.
func catalogSource(client *api.Client) lookups.Source {
	return lookups.SourceFunc(func(ctx context.Context, name string) ([]lookups.Option, bool, error) {
		catalog, err := client.LoadLookups(ctx, name)
		if err != nil {
			if api.IsStatus(err, http.StatusNotFound) {
				return nil, false, nil
			}
			return nil, false, err
		}
		entries := catalog[name]
		out := make([]lookups.Option, 0, len(entries))
		for _, entry := range entries {
			out = append(out, lookups.Option{Value: entry.ID, Label: entry.Label})
		}
		return out, true, nil
	})
}

func besoinSource(client *api.Client) server.BesoinSource {
	return func(ctx context.Context) ([]besoin.Besoin, error) {
		var rows []besoin.Besoin
		err := client.List(ctx, besoin.Endpoint, &rows)
		return rows, err
	}
}
