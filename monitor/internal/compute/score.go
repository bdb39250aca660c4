package compute

// State constants derived from the band score.
const (
	StateHolding  = "holding"
	StateSettling = "settling"
	StateDrifting = "drifting"
	StateUnknown  = "unknown"
)

// Thresholds that map a band score (fraction of time out of band) to a state.
const (
	ThresholdHolding  = 0.10
	ThresholdSettling = 0.50
)

// stateFromScore maps a band score to a named state. Lower is better.
func stateFromScore(score float64) string {
	switch {
	case score <= ThresholdHolding:
		return StateHolding
	case score <= ThresholdSettling:
		return StateSettling
	default:
		return StateDrifting
	}
}
