package scoring

import (
	"math"
	"time"

	"github.com/gymkeeper/retention-engine/pkg/member"
)

// CommitmentConfig tunes the commitment scorer.
type CommitmentConfig struct {
	// ExpectedVisitsPerWeek is the attendance expectation members are
	// measured against.
	ExpectedVisitsPerWeek float64

	// WindowDays is the trailing observation window for attendance decay.
	WindowDays int

	// OnboardingDays is the window during which new members are scored
	// leniently since they lack history.
	OnboardingDays int

	// AbsenceFlagDays is the days-without-a-visit threshold for
	// FlagNoRecentVisit.
	AbsenceFlagDays int

	// VelocityFlagThreshold is the week-over-week decay rate above which
	// FlagRapidDecline fires.
	VelocityFlagThreshold float64
}

// DefaultCommitmentConfig returns the policy defaults.
func DefaultCommitmentConfig() CommitmentConfig {
	return CommitmentConfig{
		ExpectedVisitsPerWeek: 2,
		WindowDays:            28,
		OnboardingDays:        21,
		AbsenceFlagDays:       14,
		VelocityFlagThreshold: 0.5,
	}
}

// Factor weights for the commitment blend.
const (
	attendanceWeight = 0.5
	recencyWeight    = 0.3
	tenureWeight     = 0.2
)

// ScoreCommitment converts a member's visit history into a 0-100 commitment
// score with decay velocity and risk flags.
//
// The score blends three factors:
//   - attendance decay: actual vs expected visits over the trailing window,
//     penalized non-linearly as the gap widens
//   - recency: time since last visit relative to the expected inter-visit
//     interval
//   - tenure baseline: members inside the onboarding window are scored
//     leniently since they lack history
//
// The function is deterministic: no randomness and no wall clock, the caller
// supplies now.
func ScoreCommitment(m *member.Snapshot, cfg CommitmentConfig, now time.Time) ScoreResult {
	if cfg.ExpectedVisitsPerWeek <= 0 {
		cfg.ExpectedVisitsPerWeek = 2
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 28
	}

	daysSinceJoined := m.DaysSinceJoined(now)
	isNew := daysSinceJoined < cfg.OnboardingDays

	// Only measure the member over days they were actually a member.
	windowDays := cfg.WindowDays
	if daysSinceJoined < windowDays {
		windowDays = daysSinceJoined
	}
	if windowDays < 7 {
		windowDays = 7
	}
	windowStart := now.AddDate(0, 0, -windowDays)

	attendance := attendanceFactor(m, cfg, windowStart, now, windowDays)
	velocity := decayVelocity(m, cfg, now)
	recency := recencyFactor(m, cfg, now)

	// New members score against a lenient baseline rather than their thin
	// history.
	tenure := 1.0
	if !isNew {
		tenure = attendance
	}

	blended := attendanceWeight*attendance + recencyWeight*recency + tenureWeight*tenure
	score := clampScore(blended * 100)

	flags := collectFlags(m, cfg, now, attendance, velocity, isNew)

	return ScoreResult{
		Score:              score,
		HabitDecayVelocity: velocity,
		RiskFlags:          flags,
		Factors: FactorScores{
			AttendanceDecay: attendance,
			DeclineVelocity: velocity,
			Recency:         recency,
			TenureBaseline:  tenure,
		},
	}
}

// attendanceFactor is the ratio of actual to expected visits over the
// trailing window, penalized non-linearly: a member at half expectation
// scores well below 0.5.
func attendanceFactor(m *member.Snapshot, cfg CommitmentConfig, from, to time.Time, windowDays int) float64 {
	expected := cfg.ExpectedVisitsPerWeek * float64(windowDays) / 7.0
	if expected <= 0 {
		return 1
	}

	actual := float64(m.VisitsBetween(from, to.Add(time.Nanosecond)))
	ratio := actual / expected
	if ratio > 1 {
		ratio = 1
	}

	return math.Pow(ratio, 1.5)
}

// decayVelocity is the first derivative of attendance across two trailing
// weeks, normalized by the weekly expectation. Positive means decaying.
func decayVelocity(m *member.Snapshot, cfg CommitmentConfig, now time.Time) float64 {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	thisWeek := float64(m.VisitsBetween(weekAgo, now.Add(time.Nanosecond)))
	lastWeek := float64(m.VisitsBetween(twoWeeksAgo, weekAgo))

	return (lastWeek - thisWeek) / cfg.ExpectedVisitsPerWeek
}

// recencyFactor compares time since last visit against the expected
// inter-visit interval. Within one interval the member scores 1; the factor
// decays linearly to 0 at four intervals of silence.
func recencyFactor(m *member.Snapshot, cfg CommitmentConfig, now time.Time) float64 {
	interval := 7.0 / cfg.ExpectedVisitsPerWeek

	days := m.DaysSinceLastVisit(now)
	if days < 0 {
		// Never visited: new members get the benefit of the doubt
		// measured from their join date.
		days = m.DaysSinceJoined(now)
	}

	overdue := float64(days) - interval
	if overdue <= 0 {
		return 1
	}

	factor := 1 - overdue/(3*interval)
	if factor < 0 {
		return 0
	}
	return factor
}

func collectFlags(m *member.Snapshot, cfg CommitmentConfig, now time.Time, attendance, velocity float64, isNew bool) []RiskFlag {
	var flags []RiskFlag

	days := m.DaysSinceLastVisit(now)
	if days < 0 && !isNew {
		flags = append(flags, FlagNeverVisited)
	}
	if days >= cfg.AbsenceFlagDays {
		flags = append(flags, FlagNoRecentVisit)
	}
	if velocity >= cfg.VelocityFlagThreshold {
		flags = append(flags, FlagRapidDecline)
	}
	if !isNew && attendance < 0.25 {
		flags = append(flags, FlagLowFrequency)
	}

	return flags
}
