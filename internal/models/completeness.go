package models

import "strings"

// Completeness weights. Each criterion is an independent threshold test and
// the weights sum to 1.0, so richer disclosures can only raise the score.
const (
	weightName        = 0.05
	weightEmail       = 0.05
	weightConvBase    = 0.12
	weightConvRich    = 0.10
	weightValues      = 0.12
	weightAntiValues  = 0.06
	weightNonNegs     = 0.08
	weightConstraints = 0.06
	weightLifeVision  = 0.12
	weightGoal90d     = 0.05
	weightGoal12m     = 0.05
	weightPatterns    = 0.08
	weightPatternsAll = 0.05
	weightLinks       = 0.02
	weightConsent     = 0.02

	convBaseThreshold   = 60
	convRichThreshold   = 120
	lifeVisionThreshold = 60
	goalThreshold       = 20
	patternsThreshold   = 4
	patternsAllThresold = 8
)

// Completeness estimates how much of the profile has been filled in, as a
// value in [0, 1]. It is a pure function of the profile's current fields:
// a fixed partition of weight summed across independent threshold tests,
// never a continuous function of content quality.
func Completeness(p Profile) float64 {
	score := 0.0

	if p.Name != "" {
		score += weightName
	}
	if p.Email != "" {
		score += weightEmail
	}

	// Pasted conversation snippets are the strongest signal.
	convLen := 0
	if p.Conv != nil {
		convLen = len(p.Conv.Fam) + len(p.Conv.Frd) + len(p.Conv.Wrk)
	}
	if convLen >= convBaseThreshold {
		score += weightConvBase
	}
	if convLen >= convRichThreshold {
		score += weightConvRich
	}

	if len(p.Values) >= 3 {
		score += weightValues
	}
	if len(p.AntiValues) >= 2 {
		score += weightAntiValues
	}

	if len(p.NonNegs) >= 2 {
		score += weightNonNegs
	}
	if len(p.Constraints) >= 2 {
		score += weightConstraints
	}

	if len(strings.TrimSpace(p.LifeVision)) >= lifeVisionThreshold {
		score += weightLifeVision
	}
	if len(strings.TrimSpace(p.Goal90d)) >= goalThreshold {
		score += weightGoal90d
	}
	if len(strings.TrimSpace(p.Goal12m)) >= goalThreshold {
		score += weightGoal12m
	}

	// Slider values are not inspected; setting a slider at all is the signal.
	if len(p.Patterns) >= patternsThreshold {
		score += weightPatterns
	}
	if len(p.Patterns) >= patternsAllThresold {
		score += weightPatternsAll
	}

	if p.Links.Count() >= 1 {
		score += weightLinks
	}
	if p.Consent != nil && p.Consent.AnalyzeLinks != nil && *p.Consent.AnalyzeLinks {
		score += weightConsent
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
