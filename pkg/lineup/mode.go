package lineup

import (
	"fmt"
	"strings"
)

// Mode selects how a lineup is computed: LongTerm or TrailingWindow.
type Mode interface {
	// Tag is the short name stored in snapshots ("alltime" or "current").
	Tag() string
	// Title is the human readable heading of the lineup.
	Title() string
	mode()
}

const (
	TagAllTime = "alltime"
	TagCurrent = "current"
)

// LongTerm ranks the listener's all-time favourite tracks.
type LongTerm struct{}

func (LongTerm) Tag() string   { return TagAllTime }
func (LongTerm) Title() string { return "ALL-TIME (Spotify Long-Term)" }
func (LongTerm) mode()         {}

// TrailingWindow ranks tracks by recent listening over the last Days days.
type TrailingWindow struct {
	Days int
}

// WindowDays returns Days, falling back to DefaultWindowDays.
func (w TrailingWindow) WindowDays() int {
	if w.Days <= 0 {
		return DefaultWindowDays
	}
	return w.Days
}

func (TrailingWindow) Tag() string     { return TagCurrent }
func (w TrailingWindow) Title() string { return fmt.Sprintf("CURRENT (%d-Day Trend)", w.WindowDays()) }
func (TrailingWindow) mode()           {}

// ParseMode maps "current" to a TrailingWindow of days; any other tag is LongTerm.
func ParseMode(tag string, days int) Mode {
	if strings.EqualFold(strings.TrimSpace(tag), TagCurrent) {
		return TrailingWindow{Days: days}
	}
	return LongTerm{}
}
