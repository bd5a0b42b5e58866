package lineup

import (
	"regexp"
	"strings"
)

// collabSeparator matches the first collaboration marker in an artist
// display string. Word markers must stand alone between whitespace.
var collabSeparator = regexp.MustCompile(`(?i)\s*(,|&|×|\s+and\s+|\s+x\s+|\s+feat\.?\s+|\s+featuring\s+|\s+ft\.?\s+|\s+with\s+)\s*`)

// PrimaryArtistKey reduces an artist display string to the lead artist,
// case folded with whitespace collapsed. It is the uniqueness key for a lineup.
func PrimaryArtistKey(display string) string {
	lead := display
	if loc := collabSeparator.FindStringIndex(display); loc != nil {
		lead = display[:loc[0]]
	}
	return strings.Join(strings.Fields(strings.ToLower(lead)), " ")
}
