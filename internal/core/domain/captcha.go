package domain

// CaptchaResult carries the provider's verdict on a client proof.
// Score ranges 0.0 (bot) to 1.0 (human) for score-based providers.
type CaptchaResult struct {
	Success bool
	Score   float64
}

// MeetsThreshold reports whether the proof passed with at least the
// required confidence.
func (r CaptchaResult) MeetsThreshold(min float64) bool {
	return r.Success && r.Score >= min
}
