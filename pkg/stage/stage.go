package stage

import (
	"github.com/gymkeeper/retention-engine/pkg/member"
	"github.com/gymkeeper/retention-engine/pkg/scoring"
)

// Stage is a member's lifecycle stage.
type Stage string

const (
	Onboarding   Stage = "onboarding"
	HabitForming Stage = "habit-forming"
	Stable       Stage = "stable"
	Plateau      Stage = "plateau"
	Disengaging  Stage = "disengaging"
	AtRisk       Stage = "at-risk"
	WinBack      Stage = "win-back"
	Churned      Stage = "churned"
)

// All lists every stage, for validation and reporting.
var All = []Stage{Onboarding, HabitForming, Stable, Plateau, Disengaging, AtRisk, WinBack, Churned}

// Classification thresholds. Ties are resolved by the fixed precedence in
// Classify, not by these values.
const (
	onboardingDays     = 21
	habitFormingDays   = 60
	winBackWindowDays  = 90
	stableCommitment   = 70
	habitCommitment    = 50
	stableMonthlyFloor = 4
	decayThreshold     = 0.5
)

// Input is the snapshot a member is classified from.
type Input struct {
	Status             member.Status
	ChurnScore         int
	ChurnLevel         scoring.RiskLevel
	CommitmentScore    int
	HabitDecayVelocity float64
	DaysSinceJoined    int
	DaysSinceLastVisit int // -1 if never visited
	VisitsLast30Days   int
	RiskFlags          []scoring.RiskFlag
}

// Classify maps a member snapshot to a lifecycle stage.
//
// Rules are evaluated top-down, first match wins:
//  1. cancelled members: win-back while recently lapsed, churned after
//  2. inactive members past the churn horizon: churned, else win-back
//  3. very new members: onboarding
//  4. high churn risk: at-risk
//  5. medium risk or rapid habit decay: disengaging
//  6. early tenure with decent commitment: habit-forming
//  7. high commitment and healthy recent attendance: stable
//  8. everything else: plateau
func Classify(in Input) Stage {
	if in.Status == member.StatusCancelled {
		if in.DaysSinceLastVisit >= 0 && in.DaysSinceLastVisit <= winBackWindowDays {
			return WinBack
		}
		return Churned
	}

	if in.Status == member.StatusInactive {
		if in.DaysSinceLastVisit < 0 || in.DaysSinceLastVisit > winBackWindowDays {
			return Churned
		}
		return WinBack
	}

	if in.DaysSinceJoined < onboardingDays {
		return Onboarding
	}

	if in.ChurnLevel == scoring.RiskHigh {
		return AtRisk
	}

	if in.ChurnLevel == scoring.RiskMedium || in.HabitDecayVelocity >= decayThreshold {
		return Disengaging
	}

	if in.DaysSinceJoined < habitFormingDays && in.CommitmentScore >= habitCommitment {
		return HabitForming
	}

	if in.CommitmentScore >= stableCommitment && in.VisitsLast30Days >= stableMonthlyFloor {
		return Stable
	}

	return Plateau
}

// Interpretation returns a human-readable behavioural reading of a stage.
func Interpretation(s Stage) string {
	switch s {
	case Onboarding:
		return "Recently joined and still forming a routine; judge leniently and focus on first-visit momentum."
	case HabitForming:
		return "Early tenure with a promising attendance pattern; the habit is forming but not yet durable."
	case Stable:
		return "Consistent attendance at or above expectation; no intervention needed."
	case Plateau:
		return "Attendance is flat but holding; watch for early signs of decline."
	case Disengaging:
		return "Attendance is decaying week-over-week; engagement is slipping."
	case AtRisk:
		return "High churn risk; commitment and recency both point toward imminent disengagement."
	case WinBack:
		return "Recently lapsed; still within the window where outreach can plausibly bring them back."
	case Churned:
		return "No meaningful engagement for an extended period; treat as lost unless they return on their own."
	default:
		return "Unknown stage."
	}
}
