// Command diag asks the position feed once and prints what the lamp would
// decide: the projected points, their distance and the verdict.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sebhoos/iss-illumination/internal/clock"
	"github.com/sebhoos/iss-illumination/internal/feed"
	"github.com/sebhoos/iss-illumination/internal/indicator"
	"github.com/sebhoos/iss-illumination/internal/pixel"
	"github.com/sebhoos/iss-illumination/internal/propagation"
	"github.com/sebhoos/iss-illumination/internal/tle"
	"github.com/sebhoos/iss-illumination/internal/transform"
)

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load .env file:", err)
	}

	lat := flag.Float64("lat", 51.0, "observer latitude in degrees")
	lon := flag.Float64("lon", 6.0, "observer longitude in degrees")
	radius := flag.Float64("radius", 1_000_000, "visibility radius in metres")
	feedURL := flag.String("feed", feed.DefaultSourceURL, "position feed URL")
	useSGP4 := flag.Bool("sgp4", false, "propagate from TLE instead of asking the feed")
	tleURL := flag.String("tle", tle.DefaultSourceURL, "TLE source URL for -sgp4")
	leds := flag.Int("leds", 4, "strip length for the rendered preview")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	var logOut io.Writer = io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clk := clock.Real{}
	var locator feed.Locator = feed.NewFeed(feed.NewFetcher(*feedURL, 10*time.Second, logger))
	source := *feedURL
	if *useSGP4 {
		src := tle.NewSource(tle.NewFetcher(*tleURL, logger), nil, tle.NewStore(), time.Hour, clk, logger)
		locator = propagation.NewLocator(src, propagation.ISSNoradID, clk, logger)
		source = "sgp4:" + *tleURL
	}

	observer := transform.GeoPoint{Latitude: *lat, Longitude: *lon}
	pos, err := locator.Locate(ctx)
	if err != nil {
		var pe *feed.ParseError
		switch {
		case errors.As(err, &pe):
			fmt.Printf("PARSE ERROR (field %q): %v\n", pe.Field, err)
		default:
			fmt.Println("FETCH ERROR:", err)
		}
		os.Exit(1)
	}

	own := transform.Project(observer, observer.Latitude)
	obj := transform.Project(pos, observer.Latitude)
	dist := transform.Distance(own, obj)
	visible := transform.IsWithinRange(own, obj, *radius)

	fmt.Printf("Source:    %s\n", source)
	fmt.Printf("Object:    lat=%.4f lon=%.4f\n", pos.Latitude, pos.Longitude)
	fmt.Printf("Observer:  lat=%.4f lon=%.4f\n", observer.Latitude, observer.Longitude)
	fmt.Printf("Planar:    observer=(%.0f, %.0f) object=(%.0f, %.0f) m\n", own.X, own.Y, obj.X, obj.Y)
	fmt.Printf("Distance:  %.0f m (radius %.0f m)\n", dist, *radius)

	mode := indicator.NotVisible
	if visible {
		mode = indicator.Visible
	}
	fmt.Printf("Verdict:   %s\n", mode)

	rec := pixel.NewRecorder(*leds)
	cfg := indicator.DefaultConfig()
	cfg.FrameDelay = 0
	indicator.NewRenderer(cfg, rec, clk, logger).Render(ctx, mode)
	for i, frame := range rec.Frames() {
		fmt.Printf("Frame %d:  ", i)
		for _, c := range frame {
			fmt.Print(" ", c.Hex())
		}
		fmt.Println()
	}
}

// loadDotEnv loads .env (or the given files); a missing file is not an error.
func loadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
