package feed

import "math"

// halfLifeHours is the recency half-life: a post's freshness weight halves
// every six hours.
const halfLifeHours = 6.0

// freshnessBoost is the additive weight a brand-new post gets regardless of
// engagement, so new content is visible before it has any.
const freshnessBoost = 10.0

// RecencyWeight returns the exponential decay factor for a post ageHours
// old.
func RecencyWeight(ageHours float64) float64 {
	return math.Exp2(-ageHours / halfLifeHours)
}

// Score ranks a post by engagement and age. Comments weigh triple, shares
// and reposts double, likes single. The multiplicative term rewards
// engagement more while the post is fresh; the additive term gives
// zero-engagement posts initial visibility and decays smoothly toward zero
// without ever going negative.
func Score(ageHours float64, comments, likes, shares, reposts int) float64 {
	recency := RecencyWeight(ageHours)
	engagement := float64(3*comments + likes + 2*shares + 2*reposts)
	return engagement*(1+recency) + freshnessBoost*recency
}
