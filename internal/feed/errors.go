package feed

import "fmt"

// FetchError reports a transport failure while requesting the position feed.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching position from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a feed document with missing or malformed fields.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parsing position: %v", e.Err)
	}
	return fmt.Sprintf("parsing position field %q: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
