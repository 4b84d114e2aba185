// Package matcher selects (member, play) candidate pairs from the current
// risk snapshots and each play's trigger thresholds.
package matcher

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gymkeeper/retention-engine/pkg/channel"
	"github.com/gymkeeper/retention-engine/pkg/member"
	"github.com/gymkeeper/retention-engine/pkg/play"
	"github.com/gymkeeper/retention-engine/pkg/scoring"
	"github.com/gymkeeper/retention-engine/pkg/stage"
)

// Candidate is a proposed intervention: one member matched against one play,
// with the channel already resolved.
type Candidate struct {
	Member  member.Snapshot
	Play    play.Play
	Channel channel.Channel
	Score   scoring.ScoreResult
	Risk    scoring.ChurnRisk
	Stage   stage.Stage
	Reason  string
}

// Matcher scores members and matches them against daily-batch plays.
type Matcher struct {
	commitmentCfg scoring.CommitmentConfig
	churnCfg      scoring.ChurnConfig
	priority      []channel.Channel
}

// New creates a matcher. A nil/empty priority falls back to the default
// channel order.
func New(commitmentCfg scoring.CommitmentConfig, churnCfg scoring.ChurnConfig, priority []channel.Channel) *Matcher {
	if len(priority) == 0 {
		priority = channel.DefaultPriority
	}
	return &Matcher{
		commitmentCfg: commitmentCfg,
		churnCfg:      churnCfg,
		priority:      priority,
	}
}

// Snapshot scores one member and classifies their stage.
func (m *Matcher) Snapshot(mem *member.Snapshot, now time.Time) (scoring.ScoreResult, scoring.ChurnRisk, stage.Stage) {
	score := scoring.ScoreCommitment(mem, m.commitmentCfg, now)
	visits30 := mem.VisitsSince(now.AddDate(0, 0, -30))
	risk := scoring.ScoreChurnRisk(mem.LastVisitAt, mem.JoinedAt, score.Score, visits30, m.churnCfg, now)

	st := stage.Classify(stage.Input{
		Status:             mem.Status,
		ChurnScore:         risk.Score,
		ChurnLevel:         risk.Level,
		CommitmentScore:    score.Score,
		HabitDecayVelocity: score.HabitDecayVelocity,
		DaysSinceJoined:    mem.DaysSinceJoined(now),
		DaysSinceLastVisit: mem.DaysSinceLastVisit(now),
		VisitsLast30Days:   visits30,
		RiskFlags:          score.RiskFlags,
	})

	return score, risk, st
}

// Match proposes candidates for every active daily-batch play whose risk
// threshold the member meets. A member with a bad record (missing join date)
// is skipped with a logged reason, never aborting the pass.
func (m *Matcher) Match(members []member.Snapshot, plays []play.Play, now time.Time) []Candidate {
	var candidates []Candidate

	batchPlays := make([]play.Play, 0, len(plays))
	for _, p := range plays {
		if p.Active && p.Trigger == play.TriggerDailyBatch {
			batchPlays = append(batchPlays, p)
		}
	}
	if len(batchPlays) == 0 {
		return nil
	}

	for i := range members {
		mem := &members[i]

		if mem.Status != member.StatusActive {
			continue
		}
		if mem.JoinedAt.IsZero() {
			logrus.Warnf("skipping member %s: missing join date", mem.ID)
			continue
		}

		score, risk, st := m.Snapshot(mem, now)

		for _, p := range batchPlays {
			if risk.Score < p.MinRiskScore {
				continue
			}
			ch, ok := m.pickChannel(mem, &p)
			if !ok {
				logrus.Debugf("member %s matched play %s but has no usable contact", mem.ID, p.ID)
				continue
			}

			candidates = append(candidates, Candidate{
				Member:  *mem,
				Play:    p,
				Channel: ch,
				Score:   score,
				Risk:    risk,
				Stage:   st,
				Reason:  matchReason(score, risk),
			})
		}
	}

	return candidates
}

// pickChannel resolves the play's highest-priority channel the member can
// actually receive.
func (m *Matcher) pickChannel(mem *member.Snapshot, p *play.Play) (channel.Channel, bool) {
	for _, ch := range m.priority {
		if p.AllowsChannel(ch) && mem.CanReceive(ch) {
			return ch, true
		}
	}
	return "", false
}

// matchReason renders the primary risk factor for the audit trail and the
// template's primary_risk_reason variable.
func matchReason(score scoring.ScoreResult, risk scoring.ChurnRisk) string {
	if len(score.RiskFlags) > 0 {
		switch score.RiskFlags[0] {
		case scoring.FlagNeverVisited:
			return "no visits on record"
		case scoring.FlagNoRecentVisit:
			return "no recent visits"
		case scoring.FlagRapidDecline:
			return "attendance declining quickly"
		case scoring.FlagLowFrequency:
			return "attendance far below expectation"
		}
	}
	return fmt.Sprintf("churn risk %d (%s)", risk.Score, risk.Level)
}
