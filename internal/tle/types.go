package tle

import "time"

// TLEEntry is one three-line group: a name line and two element lines.
// NORADID and Epoch are read from line 1 on a best-effort basis and are zero
// when those columns are unreadable.
type TLEEntry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}
