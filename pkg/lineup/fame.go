package lineup

import "math"

// FameTier labels how well known a lineup's artists are.
type FameTier string

const (
	TierSuperNova   FameTier = "Super Nova"
	TierStarStudded FameTier = "Star Studded"
	TierEstablished FameTier = "Established"
	TierRising      FameTier = "Rising"
	TierUnderground FameTier = "Underground"
)

const (
	followerCeiling  = 7.0 // log10 of 10M followers
	popularityWeight = 0.6
	followerWeight   = 0.4
)

var tierFloors = []struct {
	floor float64
	tier  FameTier
}{
	{85, TierSuperNova},
	{70, TierStarStudded},
	{55, TierEstablished},
	{40, TierRising},
}

// FameScore blends average artist popularity (0-100) with a log-scaled
// follower score capped at 100.
func FameScore(avgPopularity, avgFollowers float64) float64 {
	ap := sanitize(avgPopularity)
	af := sanitize(avgFollowers)

	var followerScore float64
	if af > 0 {
		followerScore = math.Min(100, math.Log10(af)/followerCeiling*100)
	}
	return popularityWeight*ap + followerWeight*followerScore
}

// ClassifyFame maps average popularity and followers onto a FameTier.
// Bounds are inclusive.
func ClassifyFame(avgPopularity, avgFollowers float64) FameTier {
	fame := FameScore(avgPopularity, avgFollowers)
	for _, t := range tierFloors {
		if fame >= t.floor {
			return t.tier
		}
	}
	return TierUnderground
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
