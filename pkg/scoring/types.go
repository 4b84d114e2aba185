package scoring

// RiskFlag marks a threshold-triggered risk condition observed while scoring.
type RiskFlag string

const (
	// FlagNoRecentVisit fires when the member has not visited for longer
	// than the configured absence threshold.
	FlagNoRecentVisit RiskFlag = "no_recent_visit"

	// FlagNeverVisited fires when a member past the onboarding window has
	// no visit history at all.
	FlagNeverVisited RiskFlag = "never_visited"

	// FlagRapidDecline fires when attendance is decaying quickly
	// week-over-week.
	FlagRapidDecline RiskFlag = "rapid_decline"

	// FlagLowFrequency fires when attendance is far below expectation.
	FlagLowFrequency RiskFlag = "low_frequency"
)

// FactorScores exposes the individual factors blended into the commitment
// score, each normalized to [0,1] where 1 is healthy.
type FactorScores struct {
	AttendanceDecay float64 `json:"attendanceDecay"`
	DeclineVelocity float64 `json:"declineVelocity"`
	Recency         float64 `json:"recency"`
	TenureBaseline  float64 `json:"tenureBaseline"`
}

// ScoreResult is the output of one commitment scoring pass.
// It is produced fresh on every pass and never persisted by the engine.
type ScoreResult struct {
	Score              int          `json:"score"` // 0-100
	HabitDecayVelocity float64      `json:"habitDecayVelocity"`
	RiskFlags          []RiskFlag   `json:"riskFlags"`
	Factors            FactorScores `json:"factorScores"`
}

// HasFlag reports whether the result carries a risk flag.
func (r *ScoreResult) HasFlag(f RiskFlag) bool {
	for _, flag := range r.RiskFlags {
		if flag == f {
			return true
		}
	}
	return false
}

// RiskLevel buckets a churn risk score.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ChurnRisk is the output of the churn risk scorer.
type ChurnRisk struct {
	Score int       `json:"score"` // 0-100
	Level RiskLevel `json:"level"`
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v + 0.5)
}
