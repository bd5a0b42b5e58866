package lineup

import "testing"

func TestPrimaryArtistKey(t *testing.T) {
	tests := []struct {
		display string
		want    string
	}{
		{"Drake & 21 Savage", "drake"},
		{"Drake, Future", "drake"},
		{"DRAKE", "drake"},
		{"  The   Weeknd  ", "the weeknd"},
		{"Calvin Harris feat. Rihanna", "calvin harris"},
		{"Calvin Harris Feat Rihanna", "calvin harris"},
		{"Calvin Harris featuring Rihanna", "calvin harris"},
		{"Calvin Harris ft. Rihanna", "calvin harris"},
		{"Calvin Harris FT Rihanna", "calvin harris"},
		{"Silk Sonic with Bruno Mars", "silk sonic"},
		{"Mark Ronson x Miley Cyrus", "mark ronson"},
		{"Rosalía × Björk", "rosalía"},
		{"Simon and Garfunkel", "simon"},
		{"Lil Nas X", "lil nas x"},
		{"Andrew Bird", "andrew bird"},
		{"Withered Hand", "withered hand"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			if got := PrimaryArtistKey(tt.display); got != tt.want {
				t.Errorf("PrimaryArtistKey(%q) = %q, want %q", tt.display, got, tt.want)
			}
		})
	}
}
