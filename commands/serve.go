package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/api"
	"github.com/penwyp/go-activity-monitor/internal/application/viewer"
	"github.com/penwyp/go-activity-monitor/internal/util"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveWidth   int
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the timeline session over HTTP",
	Long: `Runs one timeline session and exposes its viewport, ticks, intervals,
usage tables, selection and screenshot lookup as a JSON API for a UI front end.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"Listen address (default server.addr)")
	serveCmd.Flags().IntVar(&serveWidth, "width", 1200,
		"Initial viewport width in pixels")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", nil,
		"Allowed CORS origins (default any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	opts, err := viewer.OptionsFromConfig(cfg.Viewer, serveWidth)
	if err != nil {
		return err
	}
	session, err := viewer.NewSession(ctx, st, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	session.Start()
	go session.Run(ctx)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(session, st, serveOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		util.LogInfo(fmt.Sprintf("Activity API listening on %s", addr))
		fmt.Fprintf(cmd.OutOrStdout(), "Activity API listening on http://%s\n", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	util.LogInfo("Activity API stopped")
	return nil
}
