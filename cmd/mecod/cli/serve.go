package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/metaconcert/meco/internal/observability"
	"github.com/metaconcert/meco/internal/token"
)

const shutdownTimeout = 10 * time.Second

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the token API, block producer and expiry reclaimer",
		RunE:  serve,
	}
	cmd.Flags().Int("port", 0, "HTTP port (overrides config)")
	return cmd
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}
	observability.InitLogger("mecod", cfg.LogLevel)
	observability.RegisterMetrics()

	tok, err := token.Open(cfg)
	if err != nil {
		return fmt.Errorf("open token: %w", err)
	}
	srv := token.NewServer(tok, cfg)
	httpSrv := srv.HTTPServer(cfg.Port)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Int("port", cfg.Port).
			Str("symbol", tok.Symbol()).
			Bool("persistent", cfg.Persistent).
			Msg("Token server listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	srv.Close()
	// Seal what was accepted since the last block so it survives a restart.
	if _, perr := tok.ProduceBlock(); perr != nil {
		log.Error().Err(perr).Msg("Failed to seal final block")
	}
	if cerr := tok.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("Failed to close token state")
	}
	return err
}
