// KAM Sentinel — local hardware monitoring dashboard with smart warning thresholds.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kypin00-web/KAM-Sentinel/internal/config"
	"github.com/kypin00-web/KAM-Sentinel/internal/logger"
	"github.com/kypin00-web/KAM-Sentinel/internal/sampler"
	"github.com/kypin00-web/KAM-Sentinel/internal/server"
	"github.com/kypin00-web/KAM-Sentinel/internal/sysinfo"
	"github.com/kypin00-web/KAM-Sentinel/internal/thresholds"
)

const asciiLogo = `
 ██╗  ██╗ █████╗ ███╗   ███╗    ███████╗███████╗███╗   ██╗████████╗██╗███╗   ██╗███████╗██╗
 ██║ ██╔╝██╔══██╗████╗ ████║    ██╔════╝██╔════╝████╗  ██║╚══██╔══╝██║████╗  ██║██╔════╝██║
 █████╔╝ ███████║██╔████╔██║    ███████╗█████╗  ██╔██╗ ██║   ██║   ██║██╔██╗ ██║█████╗  ██║
 ██╔═██╗ ██╔══██║██║╚██╔╝██║    ╚════██║██╔══╝  ██║╚██╗██║   ██║   ██║██║╚██╗██║██╔══╝  ██║
 ██║  ██╗██║  ██║██║ ╚═╝ ██║    ███████║███████╗██║ ╚████║   ██║   ██║██║ ╚████║███████╗███████╗
 ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝    ╚══════╝╚══════╝╚═╝  ╚═══╝   ╚═╝   ╚═╝╚═╝  ╚═══╝╚══════╝╚══════╝
`

const version = "v1.2.0"

func printBanner(mode string) {
	fmt.Print(asciiLogo)
	fmt.Printf("  ► KAM Sentinel %s  |  Mode: %s\n\n", version, mode)
}

func main() {
	root := &cobra.Command{
		Use:          "kam-sentinel",
		Short:        "KAM Sentinel — local hardware monitoring dashboard",
		Long:         `KAM Sentinel samples CPU/GPU/RAM/network/disk telemetry, evaluates it against hardware-aware warning thresholds, and serves a browser dashboard.`,
		SilenceUsage: true,
	}

	// ── serve subcommand ──────────────────────────────────────────────────────
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sampler loop and the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SERVE")
			return runServe()
		},
	}

	// ── detect subcommand ─────────────────────────────────────────────────────
	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the hardware-detected threshold profile as JSON and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := sysinfo.Collect()
			p := thresholds.Detect(info.CPUName, info.GPUName)
			out, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print KAM Sentinel version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("KAM Sentinel %s\n", version)
		},
	}

	root.AddCommand(serveCmd, detectCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Init(cfg.LogLevel)

	// One-shot hardware inventory; CPU/GPU names drive threshold detection.
	info := sysinfo.Collect()
	logger.Info().Str("cpu", info.CPUName).Str("gpu", info.GPUName).Msg("hardware detected")

	profileStore := thresholds.NewStore(cfg.ProfileDir)
	profiles, err := thresholds.NewManager(profileStore, info.CPUName, info.GPUName)
	if err != nil {
		return fmt.Errorf("initializing thresholds: %w", err)
	}

	store, err := server.OpenStore(cfg.DBPath, info, cfg.MetricRetention, cfg.EventRetention)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sampler pipeline: gopsutil collector + background GPU monitor feeding
	// the warning evaluator from a single goroutine.
	gpu := sampler.NewGPUMonitor(ctx)
	collector := sampler.NewCollector(gpu)
	loop := sampler.New(collector, profiles, store,
		time.Duration(cfg.PollIntervalSec)*time.Second, cfg.HistorySamples, cfg.LogBatchSize)
	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		loop.Run(ctx)
	}()

	// HTTP layer.
	server.SetJWTSecret(cfg.JWTSecret)
	server.SetAdminCredentials(cfg.AdminUser, cfg.AdminPass)
	server.Configure(loop, profiles, store, info, version)

	gin.SetMode(gin.ReleaseMode)
	corsMiddleware := func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware)
	server.RegisterRoutes(engine)
	server.RegisterStaticFiles(engine)

	addr := fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort)
	srv := &http.Server{Addr: addr, Handler: engine}

	logger.Info().Str("addr", "http://"+addr).Int("poll_interval_sec", cfg.PollIntervalSec).
		Msg("dashboard running")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		stop()
		<-samplerDone
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-samplerDone
		return nil
	}
}
