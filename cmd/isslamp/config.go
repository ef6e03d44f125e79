package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sebhoos/iss-illumination/internal/api"
	"github.com/sebhoos/iss-illumination/internal/auth"
	"github.com/sebhoos/iss-illumination/internal/beacon"
	"github.com/sebhoos/iss-illumination/internal/feed"
	"github.com/sebhoos/iss-illumination/internal/indicator"
	"github.com/sebhoos/iss-illumination/internal/link"
	"github.com/sebhoos/iss-illumination/internal/observability"
	"github.com/sebhoos/iss-illumination/internal/tle"
)

func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil || level == "" {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ISSLAMP_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ISSLAMP_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ISSLAMP_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ISSLAMP_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// loadAPIConfig returns an empty Addr when ISSLAMP_HTTP_ADDR is set but
// empty, which disables the status server.
func loadAPIConfig(logger *slog.Logger, authCfg auth.Config) api.Config {
	cfg := api.Config{Addr: ":8080", Auth: authCfg}
	if v, ok := os.LookupEnv("ISSLAMP_HTTP_ADDR"); ok {
		cfg.Addr = strings.TrimSpace(v)
	}
	cfg.TrustProxy = envBool(logger, "ISSLAMP_TRUST_PROXY", false)

	if cfg.Addr == "" {
		logger.Info("status server disabled")
	}
	return cfg
}

func loadBeaconConfig(logger *slog.Logger) beacon.Config {
	cfg := beacon.DefaultConfig()

	if v := os.Getenv("ISSLAMP_OBSERVER_LAT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -90 || f > 90 {
			logger.Warn("invalid ISSLAMP_OBSERVER_LAT value, using default", "value", v, "default", cfg.Observer.Latitude)
		} else {
			cfg.Observer.Latitude = f
		}
	}

	if v := os.Getenv("ISSLAMP_OBSERVER_LON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -180 || f > 180 {
			logger.Warn("invalid ISSLAMP_OBSERVER_LON value, using default", "value", v, "default", cfg.Observer.Longitude)
		} else {
			cfg.Observer.Longitude = f
		}
	}

	if v := os.Getenv("ISSLAMP_VISIBILITY_RADIUS_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid ISSLAMP_VISIBILITY_RADIUS_M value, using default", "value", v, "default", cfg.VisibilityRadius)
		} else {
			cfg.VisibilityRadius = f
		}
	}

	if v := os.Getenv("ISSLAMP_POLL_SKIP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid ISSLAMP_POLL_SKIP value, using default", "value", v, "default", cfg.PollSkip)
		} else {
			cfg.PollSkip = n
		}
	}

	if v := os.Getenv("ISSLAMP_TICK_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSLAMP_TICK_SECONDS value, using default", "value", v, "default", 10)
		} else {
			cfg.TickPeriod = time.Duration(n) * time.Second
		}
	}

	logger.Info("beacon config",
		"observer_lat", cfg.Observer.Latitude,
		"observer_lon", cfg.Observer.Longitude,
		"visibility_radius_m", cfg.VisibilityRadius,
		"poll_skip", cfg.PollSkip,
		"tick_seconds", cfg.TickPeriod.Seconds(),
	)

	return cfg
}

type feedConfig struct {
	URL          string
	Timeout      time.Duration
	SGP4Fallback bool
	TLE          tle.SourceConfig
}

func loadFeedConfig(logger *slog.Logger) feedConfig {
	cfg := feedConfig{
		URL:     feed.DefaultSourceURL,
		Timeout: 10 * time.Second,
		TLE: tle.SourceConfig{
			SourceURL: tle.DefaultSourceURL,
			CacheDir:  "/tmp/isslamp/tle",
			MaxFiles:  5,
			MaxAge:    24 * time.Hour,
		},
	}

	if v := os.Getenv("ISSLAMP_FEED_URL"); v != "" {
		cfg.URL = v
	}
	cfg.SGP4Fallback = envBool(logger, "ISSLAMP_SGP4_FALLBACK", false)

	if v := os.Getenv("ISSLAMP_TLE_URL"); v != "" {
		cfg.TLE.SourceURL = v
	}

	if v := os.Getenv("ISSLAMP_TLE_CACHE_DIR"); v != "" {
		cfg.TLE.CacheDir = v
	}

	if v := os.Getenv("ISSLAMP_TLE_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			logger.Warn("invalid ISSLAMP_TLE_MAX_AGE value, defaulting to 86400", "value", v)
		} else {
			cfg.TLE.MaxAge = time.Duration(seconds) * time.Second
		}
	}

	logger.Info("feed config",
		"url", cfg.URL,
		"sgp4_fallback", cfg.SGP4Fallback,
		"tle_source_url", cfg.TLE.SourceURL,
		"tle_cache_dir", cfg.TLE.CacheDir,
	)

	return cfg
}

type pixelConfig struct {
	NumLEDs    int
	Bus        string
	DataPin    int
	ClockPin   int
	SPISpeedHz int
	Indicator  indicator.Config
}

func loadPixelConfig(logger *slog.Logger) pixelConfig {
	cfg := pixelConfig{
		NumLEDs:    4,
		Bus:        "gpio",
		DataPin:    7,
		ClockPin:   5,
		SPISpeedHz: 4_000_000,
		Indicator:  indicator.DefaultConfig(),
	}

	if v := os.Getenv("ISSLAMP_NUM_LEDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1024 {
			logger.Warn("invalid ISSLAMP_NUM_LEDS value, using default", "value", v, "default", cfg.NumLEDs)
		} else {
			cfg.NumLEDs = n
		}
	}

	if v := os.Getenv("ISSLAMP_MAX_BRIGHTNESS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil || n == 0 {
			logger.Warn("invalid ISSLAMP_MAX_BRIGHTNESS value, using default", "value", v, "default", cfg.Indicator.MaxBrightness)
		} else {
			cfg.Indicator.MaxBrightness = uint8(n)
		}
	}

	if v := os.Getenv("ISSLAMP_FRAME_DELAY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid ISSLAMP_FRAME_DELAY_MS value, using default", "value", v, "default", 300)
		} else {
			cfg.Indicator.FrameDelay = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("ISSLAMP_PIXEL_BUS"); v != "" {
		switch bus := strings.ToLower(v); bus {
		case "spi", "gpio", "log":
			cfg.Bus = bus
		default:
			logger.Warn("invalid ISSLAMP_PIXEL_BUS value, using default", "value", v, "default", cfg.Bus)
		}
	}

	cfg.DataPin = envPin(logger, "ISSLAMP_DATA_PIN", cfg.DataPin)
	cfg.ClockPin = envPin(logger, "ISSLAMP_CLOCK_PIN", cfg.ClockPin)

	if v := os.Getenv("ISSLAMP_SPI_SPEED_HZ"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ISSLAMP_SPI_SPEED_HZ value, using default", "value", v, "default", cfg.SPISpeedHz)
		} else {
			cfg.SPISpeedHz = n
		}
	}

	logger.Info("pixel config",
		"leds", cfg.NumLEDs,
		"bus", cfg.Bus,
		"data_pin", cfg.DataPin,
		"clock_pin", cfg.ClockPin,
		"max_brightness", cfg.Indicator.MaxBrightness,
		"frame_delay_ms", cfg.Indicator.FrameDelay.Milliseconds(),
	)

	return cfg
}

func loadLinkConfig(logger *slog.Logger) link.Config {
	cfg := link.DefaultConfig()

	cfg.Interface = os.Getenv("ISSLAMP_LINK_INTERFACE")
	if v := os.Getenv("ISSLAMP_LINK_PROBE_ADDR"); v != "" {
		cfg.ProbeAddr = v
	}

	logger.Info("link config",
		"interface", cfg.Interface,
		"probe_addr", cfg.ProbeAddr,
		"max_backoff_seconds", cfg.MaxInterval.Seconds(),
	)

	return cfg
}

func loadTracingConfig(logger *slog.Logger) observability.TracingConfig {
	cfg := observability.DefaultTracingConfig()

	cfg.Enabled = envBool(logger, "ISSLAMP_TRACING_ENABLED", false)
	if v := os.Getenv("ISSLAMP_TRACING_EXPORTER"); v != "" {
		cfg.Exporter = strings.ToLower(v)
	}
	cfg.Endpoint = os.Getenv("ISSLAMP_TRACING_ENDPOINT")

	if v := os.Getenv("ISSLAMP_TRACING_SAMPLE_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			logger.Warn("invalid ISSLAMP_TRACING_SAMPLE_RATIO value, using default", "value", v, "default", cfg.SampleRatio)
		} else {
			cfg.SampleRatio = f
		}
	}

	return cfg
}

func envBool(logger *slog.Logger, key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid boolean value, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

// envPin reads a BCM pin number (0-27 on the 40-pin header).
func envPin(logger *slog.Logger, key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 27 {
		logger.Warn("invalid pin value, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}
