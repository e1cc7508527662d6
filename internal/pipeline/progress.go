package pipeline

import "time"

// expectedGateDuration tunes the cosmetic ramp so a typical remote call lands
// around the 80% mark when the real response arrives.
const expectedGateDuration = 8 * time.Second

// EstimatePercent maps elapsed time onto a 0-99 display ramp for an in-flight
// gate. It is deterministic, asymptotic and purely cosmetic: the authoritative
// result always comes from the remote call, and this value never feeds into
// any pass/fail decision.
func EstimatePercent(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	t := elapsed.Seconds()
	expected := expectedGateDuration.Seconds()
	percent := 100 * t / (t + expected)
	if percent > 99 {
		percent = 99
	}
	return percent
}
