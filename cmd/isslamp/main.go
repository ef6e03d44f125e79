package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sebhoos/iss-illumination/internal/api"
	"github.com/sebhoos/iss-illumination/internal/beacon"
	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/feed"
	"github.com/sebhoos/iss-illumination/internal/indicator"
	"github.com/sebhoos/iss-illumination/internal/link"
	"github.com/sebhoos/iss-illumination/internal/observability"
	"github.com/sebhoos/iss-illumination/internal/pixel"
	"github.com/sebhoos/iss-illumination/internal/propagation"
	"github.com/sebhoos/iss-illumination/internal/tle"
)

func main() {
	envErr := godotenv.Load()
	logger := newLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", envErr)
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	beaconCfg := loadBeaconConfig(logger)
	feedCfg := loadFeedConfig(logger)
	pixelCfg := loadPixelConfig(logger)
	linkCfg := loadLinkConfig(logger)
	tracingCfg := loadTracingConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, logger)
	if err != nil {
		logger.Error("tracing init failed", "error", err)
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	clk := clock.Real{}
	locator := buildLocator(feedCfg, clk, logger)

	driver, closer := openDriver(pixelCfg, logger)
	defer closer.Close()

	renderer := indicator.NewRenderer(pixelCfg.Indicator, driver, clk, logger)
	links := link.NewProbeManager(linkCfg, nil, clk, logger)
	board := beacon.NewBoard()
	cycle := beacon.NewCycle(beaconCfg, locator, links, renderer, board, clk, logger)

	var srv *api.Server
	if apiCfg := loadAPIConfig(logger, authCfg); apiCfg.Addr != "" {
		srv = api.NewServer(apiCfg, board, logger)
		go func() {
			logger.Info("starting status server", "addr", apiCfg.Addr, "auth_enabled", authCfg.Enabled)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server listen error", "error", err)
				os.Exit(1)
			}
		}()
	}

	if err := cycle.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("beacon stopped", "error", err)
	}
	logger.Info("shutting down...")

	blank(driver, logger)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}

	logger.Info("stopped")
}

// buildLocator returns the open-notify feed, optionally backed by SGP4
// propagation from cached elements.
func buildLocator(cfg feedConfig, clk clock.Clock, logger *slog.Logger) feed.Locator {
	primary := feed.NewFeed(feed.NewFetcher(cfg.URL, cfg.Timeout, logger))
	if !cfg.SGP4Fallback {
		return primary
	}

	src := tle.NewSource(
		tle.NewFetcher(cfg.TLE.SourceURL, logger),
		tle.NewCache(cfg.TLE.CacheDir, cfg.TLE.MaxFiles),
		tle.NewStore(),
		cfg.TLE.MaxAge,
		clk,
		logger,
	)
	if err := src.LoadCache(); err != nil {
		logger.Info("no usable TLE cache, will fetch on first fallback", "error", err)
	}

	logger.Info("SGP4 fallback enabled", "tle_source", cfg.TLE.SourceURL, "cache_dir", cfg.TLE.CacheDir)
	return feed.NewChain(primary, propagation.NewLocator(src, propagation.ISSNoradID, clk, logger))
}

// openDriver opens the configured bus, falling back to a log-only driver
// when GPIO memory cannot be mapped (not a Pi, or no permission).
func openDriver(cfg pixelConfig, logger *slog.Logger) (pixel.Driver, io.Closer) {
	var (
		transport pixel.Transport
		err       error
	)

	switch cfg.Bus {
	case "spi":
		transport, err = pixel.OpenSPI(cfg.SPISpeedHz)
	case "gpio":
		transport, err = pixel.OpenGPIO(cfg.DataPin, cfg.ClockPin)
	default:
		logger.Info("pixel output goes to the log", "component", "pixel", "leds", cfg.NumLEDs)
		return pixel.NewLogDriver(cfg.NumLEDs, logger), nopCloser{}
	}

	if err != nil {
		logger.Warn("pixel bus unavailable, logging frames instead", "component", "pixel", "bus", cfg.Bus, "error", err)
		return pixel.NewLogDriver(cfg.NumLEDs, logger), nopCloser{}
	}

	logger.Info("pixel bus opened", "component", "pixel", "bus", cfg.Bus, "leds", cfg.NumLEDs)
	strip := pixel.NewStrip(cfg.NumLEDs, transport)
	return strip, strip
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func blank(d pixel.Driver, logger *slog.Logger) {
	for i := range d.Len() {
		d.SetPixel(i, pixel.Black, 0)
	}
	if err := d.Show(); err != nil {
		logger.Warn("failed to blank strip", "component", "pixel", "error", err)
	}
}
