package feed

import (
	"context"
	"errors"

	"github.com/sebhoos/iss-illumination/internal/transform"
)

// Locator reports the current position of the tracked object.
type Locator interface {
	Locate(ctx context.Context) (transform.GeoPoint, error)
}

// RawFetcher returns the raw feed document.
type RawFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Feed locates the object by fetching and parsing the JSON feed.
type Feed struct {
	fetcher RawFetcher
}

// NewFeed wraps fetcher as a Locator.
func NewFeed(fetcher RawFetcher) *Feed {
	return &Feed{fetcher: fetcher}
}

// Locate fetches the document and parses it. Errors are *FetchError or
// *ParseError.
func (f *Feed) Locate(ctx context.Context) (transform.GeoPoint, error) {
	raw, err := f.fetcher.Fetch(ctx)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Source: "feed", Err: err}
		}
		return transform.GeoPoint{}, err
	}
	return ParsePosition(raw)
}

// Chain tries each locator in order and returns the first success.
type Chain struct {
	list []Locator
}

// NewChain builds a Chain. Nil entries are skipped.
func NewChain(list ...Locator) *Chain {
	return &Chain{list: list}
}

// Locate implements Locator. When every locator fails the errors are
// joined, so errors.As still finds the typed causes.
func (c *Chain) Locate(ctx context.Context) (transform.GeoPoint, error) {
	var errs []error
	for _, l := range c.list {
		if l == nil {
			continue
		}
		p, err := l.Locate(ctx)
		if err == nil {
			return p, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return transform.GeoPoint{}, &FetchError{Source: "chain", Err: errors.New("no locators configured")}
	}
	return transform.GeoPoint{}, errors.Join(errs...)
}
