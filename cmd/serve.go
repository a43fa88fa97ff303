package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/kiosk"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/telemetry"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server.
The server provides the kiosk camera page, the check-in and enrollment API,
attendance reports and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	a, err := newApp(ctx, cmd, m)
	if err != nil {
		return err
	}
	defer a.Close()

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	reporter, err := telemetry.New(a.cfg.Telemetry, Version)
	if err != nil {
		return err
	}
	defer reporter.Flush(2 * time.Second)

	if n, err := a.service.CountPeople(ctx); err == nil {
		m.SetEnrolledIdentities(n)
		a.logger.Info("identities enrolled", "count", n)
	}

	pipeline := kiosk.NewPipeline(a.service, kiosk.Options{
		ResultHold:   a.cfg.Kiosk.ResultHold,
		MaxFrameSize: constants.MaxFrameSize,
		Metrics:      m,
		Reporter:     reporter,
		Logger:       logging.Module(a.logger, "kiosk"),
	})

	deps := web.Deps{
		Service:  a.service,
		Pipeline: pipeline,
		Photos:   a.faces,
		Metrics:  m,
		Logger:   logging.Module(a.logger, "web"),
	}
	// avoid a typed nil in the Pinger interface
	if a.embedder != nil {
		deps.Embedder = a.embedder
	}
	server := web.NewServer(a.cfg, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		a.logger.Info("shutdown requested")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Face Attendance kiosk on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
