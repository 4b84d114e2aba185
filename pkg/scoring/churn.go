package scoring

import (
	"time"
)

// ChurnConfig tunes the churn risk scorer.
type ChurnConfig struct {
	// Level cutoffs: score >= HighCutoff is "high", >= MediumCutoff is
	// "medium", >= LowCutoff is "low", anything below is "none".
	HighCutoff   int
	MediumCutoff int
	LowCutoff    int

	// InactivityHorizonDays is the absence at which the recency component
	// saturates at maximum risk.
	InactivityHorizonDays int

	// NewMemberGraceDays is the tenure below which missing visit history
	// is not treated as a churn signal.
	NewMemberGraceDays int
}

// DefaultChurnConfig returns the policy defaults.
func DefaultChurnConfig() ChurnConfig {
	return ChurnConfig{
		HighCutoff:            70,
		MediumCutoff:          40,
		LowCutoff:             15,
		InactivityHorizonDays: 30,
		NewMemberGraceDays:    14,
	}
}

// Component weights for the churn risk blend.
const (
	inactivityRiskWeight = 0.55
	commitmentRiskWeight = 0.45
)

// ScoreChurnRisk combines recency-since-last-visit and commitment score into
// a single 0-100 risk score plus a level. The mapping is monotonic: more days
// inactive and lower commitment can only raise the score.
//
// A nil lastVisit never silently maps to zero risk: for members past the
// grace window, absence of any visit history is itself a maximum recency
// signal.
func ScoreChurnRisk(lastVisit *time.Time, joinedAt time.Time, commitmentScore, visitsLast30 int, cfg ChurnConfig, now time.Time) ChurnRisk {
	if cfg.InactivityHorizonDays <= 0 {
		cfg.InactivityHorizonDays = 30
	}

	daysSinceJoined := int(now.Sub(joinedAt).Hours() / 24)
	isNew := daysSinceJoined < cfg.NewMemberGraceDays

	var inactivityRisk float64
	switch {
	case lastVisit == nil || lastVisit.IsZero():
		if isNew {
			// Too early to tell; measure silence from the join date.
			inactivityRisk = float64(daysSinceJoined) / float64(cfg.InactivityHorizonDays)
		} else {
			inactivityRisk = 1
		}
	default:
		daysInactive := now.Sub(*lastVisit).Hours() / 24
		if daysInactive < 0 {
			daysInactive = 0
		}
		inactivityRisk = daysInactive / float64(cfg.InactivityHorizonDays)
	}
	if inactivityRisk > 1 {
		inactivityRisk = 1
	}

	if commitmentScore < 0 {
		commitmentScore = 0
	}
	if commitmentScore > 100 {
		commitmentScore = 100
	}
	commitmentRisk := float64(100-commitmentScore) / 100.0

	raw := inactivityRiskWeight*inactivityRisk + commitmentRiskWeight*commitmentRisk

	// A fully silent month for an established member is a strong signal on
	// its own, independent of how the commitment blend shook out.
	if visitsLast30 == 0 && !isNew {
		raw += 0.1
	}

	score := clampScore(raw * 100)

	return ChurnRisk{
		Score: score,
		Level: levelFor(score, cfg),
	}
}

func levelFor(score int, cfg ChurnConfig) RiskLevel {
	switch {
	case score >= cfg.HighCutoff:
		return RiskHigh
	case score >= cfg.MediumCutoff:
		return RiskMedium
	case score >= cfg.LowCutoff:
		return RiskLow
	default:
		return RiskNone
	}
}
