package tle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebhoos/iss-illumination/internal/clock"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const issTLE = "ISS (ZARYA)\n" +
	"1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009\n" +
	"2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01\n"

type stubFetcher struct {
	body  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

func TestParse(t *testing.T) {
	input := "garbage line\n" + issTLE +
		"BROKEN\n1 ABCDEU 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009\n2 x\n"

	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.NORADID != 25544 || e.Name != "ISS (ZARYA)" {
		t.Errorf("entry = %+v", e)
	}
	// Day 100.5 of 2024 is 9 April 12:00 UTC.
	if want := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC); !e.Epoch.Equal(want) {
		t.Errorf("epoch = %v, want %v", e.Epoch, want)
	}
}

func TestParseSkipsGarbledElements(t *testing.T) {
	garbled := "GARBLED\n" +
		"1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009\n" +
		"2 25544  XX.XXXX 100.0000 0001000   0.0000   0.0000 15.50000000    05\n"

	entries, err := Parse(strings.NewReader(garbled+issTLE), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "ISS (ZARYA)" {
		t.Errorf("entries = %+v, want only the ISS", entries)
	}
}

func TestValidate(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(issTLE), "\n")
	line1, line2 := lines[1], lines[2]

	tests := []struct {
		name         string
		line1, line2 string
		wantErr      string
	}{
		{"valid", line1, line2, ""},
		{"trailing whitespace", line1 + "  ", line2 + "\r", ""},
		{"short", line1[:60], line2, "length"},
		{"wrong line number", line2, line1, "must start"},
		{"bad checksum", line1, line2[:68] + "2", "checksum"},
		{"garbled inclination", line1, "2 25544  XX.XXXX 100.0000 0001000   0.0000   0.0000 15.50000000    05", "inclination"},
		{"garbled epoch", "1 25544U 98067A   24100.5000X000  .00016717  00000-0  10270-3 0  9009", line2, "epoch day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.line1, tt.line2)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	// '-' counts as one, letters and spaces as zero.
	if got := Checksum("1 -A-9"); got != 2 {
		t.Errorf("Checksum = %d, want 2", got)
	}
}

func TestParseEpochCentury(t *testing.T) {
	got, err := parseEpoch("98001.00000000")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 1998 {
		t.Errorf("year = %d, want 1998", got.Year())
	}
	if _, err := parseEpoch("9"); err == nil {
		t.Error("expected error for short epoch")
	}
}

func TestDatasetFind(t *testing.T) {
	ds := &Dataset{Entries: []Entry{{NORADID: 1}, {NORADID: 25544, Name: "ISS"}}}
	if e, ok := ds.Find(25544); !ok || e.Name != "ISS" {
		t.Errorf("Find(25544) = %+v, %v", e, ok)
	}
	if _, ok := ds.Find(2); ok {
		t.Error("Find(2) should miss")
	}
	var nilDS *Dataset
	if _, ok := nilDS.Find(1); ok {
		t.Error("nil dataset should miss")
	}
}

func TestCacheWritePrunesAndLoadsLatest(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 2)

	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 4; i++ {
		if err := c.Write([]byte{byte('a' + i)}, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	files, err := c.list()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("kept %d files, want 2", len(files))
	}

	data, ts, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if string(data) != "d" || !ts.Equal(base.Add(3*time.Hour)) {
		t.Errorf("LoadLatest = %q @ %v", data, ts)
	}
}

func TestCacheEmpty(t *testing.T) {
	_, _, err := NewCache(filepath.Join(t.TempDir(), "missing"), 5).LoadLatest()
	if !errors.Is(err, ErrNoCache) {
		t.Errorf("err = %v, want ErrNoCache", err)
	}
}

func TestFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("CATNR") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(issTLE))
	}))
	defer server.Close()

	data, err := NewFetcher(server.URL+"/gp.php?CATNR=25544&FORMAT=tle", testLogger).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != issTLE {
		t.Errorf("body mismatch")
	}

	if _, err := NewFetcher(server.URL, testLogger).Fetch(context.Background()); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestSourceRefreshesWhenStale(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_800_000_000, 0))
	fetcher := &stubFetcher{body: issTLE}
	cache := NewCache(t.TempDir(), 5)
	src := NewSource(fetcher, cache, NewStore(), time.Hour, clk, testLogger)

	ds, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if ds.Source != "network" || len(ds.Entries) != 1 {
		t.Errorf("dataset = %+v", ds)
	}

	// Fresh: no second fetch.
	clk.Advance(30 * time.Minute)
	if _, err := src.Current(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.calls)
	}

	// Stale: refetch.
	clk.Advance(time.Hour)
	if _, err := src.Current(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}

	if _, _, err := cache.LoadLatest(); err != nil {
		t.Errorf("refresh should populate the disk cache: %v", err)
	}
}

func TestSourceKeepsStaleDataOnFailure(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_800_000_000, 0))
	store := NewStore()
	store.Set(&Dataset{Source: "network", FetchedAt: clk.Now().Add(-48 * time.Hour), Entries: []Entry{{NORADID: 25544}}})

	src := NewSource(&stubFetcher{err: errors.New("offline")}, nil, store, time.Hour, clk, testLogger)
	ds, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if _, ok := ds.Find(25544); !ok {
		t.Error("stale dataset should still be served")
	}
}

func TestSourceFallsBackToDiskCache(t *testing.T) {
	dir := t.TempDir()
	if err := NewCache(dir, 5).Write([]byte(issTLE), time.Unix(1_799_000_000, 0)); err != nil {
		t.Fatal(err)
	}

	clk := clock.NewFake(time.Unix(1_800_000_000, 0))
	src := NewSource(&stubFetcher{err: errors.New("offline")}, NewCache(dir, 5), NewStore(), time.Hour, clk, testLogger)

	ds, err := src.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if ds.Source != "cache" {
		t.Errorf("Source = %q, want cache", ds.Source)
	}
}

func TestSourceNoData(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_800_000_000, 0))
	src := NewSource(&stubFetcher{err: errors.New("offline")}, NewCache(t.TempDir(), 5), NewStore(), time.Hour, clk, testLogger)

	if _, err := src.Current(context.Background()); !errors.Is(err, ErrNoDataset) {
		t.Errorf("err = %v, want ErrNoDataset", err)
	}
}
