package tle

import "time"

// Entry is one satellite's two-line element set.
type Entry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// Dataset is a parsed TLE download together with its provenance.
type Dataset struct {
	Source    string
	FetchedAt time.Time
	Entries   []Entry
}

// Find returns the entry for noradID.
func (d *Dataset) Find(noradID int) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	for _, e := range d.Entries {
		if e.NORADID == noradID {
			return e, true
		}
	}
	return Entry{}, false
}
