package scoring

import (
	"testing"
)

func TestScoreChurnRisk_ScoreRangeAndDeterminism(t *testing.T) {
	cfg := DefaultChurnConfig()
	joined := testNow.AddDate(0, 0, -90)

	for days := 0; days <= 60; days += 5 {
		lastVisit := testNow.AddDate(0, 0, -days)
		first := ScoreChurnRisk(&lastVisit, joined, 50, 2, cfg, testNow)
		second := ScoreChurnRisk(&lastVisit, joined, 50, 2, cfg, testNow)

		if first != second {
			t.Fatalf("days=%d: same input produced %+v then %+v", days, first, second)
		}
		if first.Score < 0 || first.Score > 100 {
			t.Errorf("days=%d: score %d outside [0,100]", days, first.Score)
		}
	}
}

func TestScoreChurnRisk_MonotonicInInactivity(t *testing.T) {
	cfg := DefaultChurnConfig()
	joined := testNow.AddDate(0, 0, -120)

	prev := -1
	for days := 0; days <= 45; days++ {
		lastVisit := testNow.AddDate(0, 0, -days)
		risk := ScoreChurnRisk(&lastVisit, joined, 60, 3, cfg, testNow)
		if risk.Score < prev {
			t.Fatalf("score regressed from %d to %d at %d days inactive", prev, risk.Score, days)
		}
		prev = risk.Score
	}
}

func TestScoreChurnRisk_MonotonicInCommitment(t *testing.T) {
	cfg := DefaultChurnConfig()
	joined := testNow.AddDate(0, 0, -120)
	lastVisit := testNow.AddDate(0, 0, -10)

	prev := 101
	for commitment := 0; commitment <= 100; commitment += 10 {
		risk := ScoreChurnRisk(&lastVisit, joined, commitment, 3, cfg, testNow)
		if risk.Score > prev {
			t.Fatalf("score rose from %d to %d as commitment improved to %d", prev, risk.Score, commitment)
		}
		prev = risk.Score
	}
}

func TestScoreChurnRisk_NilLastVisitIsMaxRecencySignal(t *testing.T) {
	cfg := DefaultChurnConfig()
	joined := testNow.AddDate(0, 0, -90)

	risk := ScoreChurnRisk(nil, joined, 50, 0, cfg, testNow)

	if risk.Score < cfg.HighCutoff {
		t.Errorf("established member with no visit history scored %d, expected >= %d",
			risk.Score, cfg.HighCutoff)
	}
	if risk.Level != RiskHigh {
		t.Errorf("level = %s, expected %s", risk.Level, RiskHigh)
	}
}

func TestScoreChurnRisk_NewMemberGrace(t *testing.T) {
	cfg := DefaultChurnConfig()
	joined := testNow.AddDate(0, 0, -5)

	risk := ScoreChurnRisk(nil, joined, 70, 0, cfg, testNow)

	if risk.Level == RiskHigh {
		t.Errorf("member joined 5 days ago classified %s, grace window should apply", risk.Level)
	}
}

func TestScoreChurnRisk_Levels(t *testing.T) {
	cfg := DefaultChurnConfig()
	cases := []struct {
		score int
		level RiskLevel
	}{
		{0, RiskNone},
		{14, RiskNone},
		{15, RiskLow},
		{39, RiskLow},
		{40, RiskMedium},
		{69, RiskMedium},
		{70, RiskHigh},
		{100, RiskHigh},
	}
	for _, tc := range cases {
		if got := levelFor(tc.score, cfg); got != tc.level {
			t.Errorf("levelFor(%d) = %s, expected %s", tc.score, got, tc.level)
		}
	}
}
