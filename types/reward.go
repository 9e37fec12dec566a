package types

// Rewards handed to the policy update
const (
	RewardAppend float64 = 0
	RewardTrim   float64 = -1
)

// CompleteReward is the reward of an accepted input of the given length,
// twice the length capped at limit.
func CompleteReward(length int, limit float64) float64 {
	r := float64(2 * length)
	if r > limit {
		return limit
	}
	return r
}
