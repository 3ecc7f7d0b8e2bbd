package risk

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/config"
)

// Score thresholds for the aggregate grade.
const (
	highThreshold   = 8
	mediumThreshold = 4
)

// Assessor scores a set of manifest changes before the pipeline runs, so
// trivial patch bumps skip the expensive fix loop and risky ones get a
// stricter validation posture.
type Assessor struct {
	logger *zap.Logger
	cfg    config.RiskConfig
}

// New creates an assessor using the configured dependency name lists.
func New(logger *zap.Logger, cfg config.RiskConfig) *Assessor {
	return &Assessor{
		logger: logger.Named("risk"),
		cfg:    cfg,
	}
}

// Assess scores every change and grades the set. Scores are additive across
// changes; a change set is only as safe as its riskiest member, but several
// medium changes together also push the grade up.
func (a *Assessor) Assess(changes []schemas.VersionChange) *schemas.RiskAssessment {
	assessment := &schemas.RiskAssessment{Level: schemas.RiskLow}
	for _, change := range changes {
		score := a.scoreChange(change)
		assessment.Score += score
		a.logger.Debug("Scored version change",
			zap.String("dependency", change.DependencyID),
			zap.String("significance", string(change.Significance)),
			zap.Int("score", score))
	}

	switch {
	case assessment.Score >= highThreshold:
		assessment.Level = schemas.RiskHigh
	case assessment.Score >= mediumThreshold:
		assessment.Level = schemas.RiskMedium
	}
	assessment.Recommendations = a.recommend(assessment, changes)

	a.logger.Info("Risk assessment complete",
		zap.Int("changes", len(changes)),
		zap.Int("score", assessment.Score),
		zap.String("level", string(assessment.Level)))
	return assessment
}

// scoreChange weights one change: the version transition sets the base, the
// manifest element and the dependency name add bonuses.
func (a *Assessor) scoreChange(change schemas.VersionChange) int {
	var score int
	switch change.Significance {
	case schemas.SignificanceRemoval:
		score = 4
	case schemas.SignificanceMajor:
		score = 3
	case schemas.SignificanceMinor, schemas.SignificanceAddition:
		score = 2
	case schemas.SignificancePatch:
		score = 1
	case schemas.SignificancePreRelease:
		// Pre-release versions are unstable by definition.
		score = 3
	}

	switch change.ElementKind {
	case schemas.ElementPlugin:
		// Plugin changes alter the build itself, not just the classpath.
		score++
	case schemas.ElementParent:
		// Parent POM changes cascade into every inherited setting.
		score += 2
	}

	if a.isHighRisk(change.DependencyID) {
		score += 2
	}
	return score
}

// isHighRisk matches the configured high-risk list. Matching is by substring
// so a list entry like "org.springframework" covers every artifact in the
// group.
func (a *Assessor) isHighRisk(dependencyID string) bool {
	for _, name := range a.cfg.HighRiskDependencies {
		if name != "" && strings.Contains(dependencyID, name) {
			return true
		}
	}
	return false
}

// IsCritical reports whether a change demands the stricter validation
// threshold: a major bump, a removal, or a name on the critical list.
func (a *Assessor) IsCritical(change schemas.VersionChange) bool {
	if change.Significance == schemas.SignificanceMajor || change.Significance == schemas.SignificanceRemoval {
		return true
	}
	for _, name := range a.cfg.CriticalDependencies {
		if name != "" && strings.Contains(change.DependencyID, name) {
			return true
		}
	}
	return false
}

// ShouldRunPipeline compares the assessed level against the configured
// minimum. The ordering is low < medium < high.
func (a *Assessor) ShouldRunPipeline(assessment *schemas.RiskAssessment) bool {
	return levelRank(assessment.Level) >= levelRank(schemas.RiskLevel(a.cfg.MinLevelToRun))
}

func levelRank(level schemas.RiskLevel) int {
	switch level {
	case schemas.RiskHigh:
		return 2
	case schemas.RiskMedium:
		return 1
	default:
		return 0
	}
}

// recommend produces human-facing guidance attached to the assessment.
func (a *Assessor) recommend(assessment *schemas.RiskAssessment, changes []schemas.VersionChange) []string {
	var recs []string
	switch assessment.Level {
	case schemas.RiskHigh:
		recs = append(recs, "High risk: review every applied fix manually before merging.")
	case schemas.RiskMedium:
		recs = append(recs, "Medium risk: review the validation report before merging.")
	default:
		recs = append(recs, "Low risk: safe to merge once validation passes.")
	}
	for _, change := range changes {
		if change.Significance == schemas.SignificanceMajor {
			recs = append(recs, fmt.Sprintf("Check the %s migration guide for the %s to %s upgrade.",
				change.DependencyID, change.OldVersion, change.NewVersion))
		}
		if change.Significance == schemas.SignificanceRemoval {
			recs = append(recs, fmt.Sprintf("Dependency %s was removed; verify no code still references it.",
				change.DependencyID))
		}
		if change.ElementKind == schemas.ElementParent {
			recs = append(recs, fmt.Sprintf("Parent change %s affects inherited plugin and dependency versions.",
				change.DependencyID))
		}
	}
	return recs
}
