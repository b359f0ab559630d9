package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"proctrace/internal/analysis"
	"proctrace/internal/config"
	"proctrace/internal/models"
	"proctrace/internal/repository"
	"proctrace/internal/telemetry"
)

// Analyzer runs the behavioral detectors over stored sessions. Each run
// takes a configuration snapshot up front, so a reload mid-run never mixes
// tunables.
type Analyzer struct {
	log     *zap.Logger
	cfg     *config.Manager
	results *repository.Results
	events  *repository.Events
	tel     *telemetry.Telemetry
}

func NewAnalyzer(log *zap.Logger, cfg *config.Manager, results *repository.Results, events *repository.Events, tel *telemetry.Telemetry) *Analyzer {
	return &Analyzer{log: log, cfg: cfg, results: results, events: events, tel: tel}
}

// SimilarityRun is the envelope returned by one pairwise comparison run.
// Flagged lists the pair keys whose best question score reached the
// configured suspicious threshold; Details carries the verbose per-question
// breakdowns for those pairs when the caller asked for them.
type SimilarityRun struct {
	RunID     string   `json:"runId"`
	TestType  string   `json:"testType,omitempty"`
	Sessions  int      `json:"sessions"`
	ElapsedMs float64  `json:"elapsedMs"`
	Flagged   []string `json:"flagged,omitempty"`
	*analysis.Comparison
	Details map[string]map[int]*analysis.Breakdown `json:"details,omitempty"`
}

// CompareSessions scores every eligible pair among the requested sessions.
// With no explicit ids, the latest completed sessions that still carry
// behavioral payloads are compared, capped by detection.max_sessions. With
// detail set, flagged pairs additionally get the three-factor breakdown.
func (a *Analyzer) CompareSessions(ctx context.Context, sessionIDs []string, testType string, detail bool) (*SimilarityRun, error) {
	det := a.cfg.Current().Detection

	rows, err := a.loadRows(ctx, sessionIDs, testType, det.MaxSessions)
	if err != nil {
		return nil, err
	}

	views := make([]analysis.Session, 0, len(rows))
	for i := range rows {
		view, err := sessionView(&rows[i])
		if err != nil {
			a.log.Warn("Skipping session with undecodable behavioral payload",
				zap.String("session_id", rows[i].SessionID),
				zap.Error(err),
			)
			continue
		}
		views = append(views, view)
	}

	runCtx := ctx
	if det.CompareTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, det.CompareTimeout)
		defer cancel()
	}

	comparator := analysis.NewComparator(det.AnalysisConfig(), a.log)

	start := time.Now()
	cmp, err := comparator.Compare(runCtx, views)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("similarity run: %w", err)
	}

	a.tel.RecordComparisonRun(elapsed, len(cmp.Pairs))
	for _, skip := range cmp.Skipped {
		a.tel.RecordComparisonSkip(skip.Code)
	}

	run := &SimilarityRun{
		RunID:      uuid.NewString(),
		TestType:   testType,
		Sessions:   len(views),
		ElapsedMs:  float64(elapsed.Milliseconds()),
		Flagged:    flaggedPairs(cmp, det.SuspiciousThreshold),
		Comparison: cmp,
	}
	if detail && len(run.Flagged) > 0 {
		run.Details = a.breakdowns(det, views, run.Flagged)
	}

	a.log.Info("Similarity run finished",
		zap.String("run_id", run.RunID),
		zap.Int("sessions", run.Sessions),
		zap.Int("pairs", len(cmp.Pairs)),
		zap.Int("flagged", len(run.Flagged)),
		zap.Int("skipped", len(cmp.Skipped)),
		zap.Duration("elapsed", elapsed),
	)
	return run, nil
}

// flaggedPairs returns the sorted pair keys whose best question score meets
// the review threshold.
func flaggedPairs(cmp *analysis.Comparison, threshold int) []string {
	var flagged []string
	for key, scores := range cmp.Pairs {
		for _, score := range scores {
			if score >= threshold {
				flagged = append(flagged, key)
				break
			}
		}
	}
	sort.Strings(flagged)
	return flagged
}

// breakdowns recomputes the verbose three-factor diagnostic for the flagged
// pairs only; reviewers never need it for pairs nobody will look at.
func (a *Analyzer) breakdowns(det config.DetectionConfig, views []analysis.Session, flagged []string) map[string]map[int]*analysis.Breakdown {
	byID := make(map[string]*analysis.Session, len(views))
	for i := range views {
		byID[views[i].SessionID] = &views[i]
	}

	scorer := analysis.NewScorer(det.AnalysisConfig())
	details := make(map[string]map[int]*analysis.Breakdown, len(flagged))
	for _, key := range flagged {
		idA, idB, ok := analysis.SplitPairKey(key)
		if !ok {
			continue
		}
		sa, sb := byID[idA], byID[idB]
		if sa == nil || sb == nil {
			continue
		}

		n := len(sa.PerQuestion)
		if len(sb.PerQuestion) < n {
			n = len(sb.PerQuestion)
		}
		perQuestion := make(map[int]*analysis.Breakdown)
		for q := 0; q < n; q++ {
			movesA := sa.PerQuestion[q].MouseMovements
			movesB := sb.PerQuestion[q].MouseMovements
			if len(movesA) == 0 || len(movesB) == 0 {
				continue
			}
			bd, err := scorer.Detail(movesA, movesB)
			if err != nil {
				continue
			}
			perQuestion[q] = bd
		}
		details[key] = perQuestion
	}
	return details
}

func (a *Analyzer) loadRows(ctx context.Context, sessionIDs []string, testType string, limit int) ([]models.SessionResult, error) {
	if len(sessionIDs) == 0 {
		return a.results.ListForAnalysis(ctx, testType, limit)
	}

	if limit > 0 && len(sessionIDs) > limit {
		return nil, fmt.Errorf("%d sessions requested, the run limit is %d", len(sessionIDs), limit)
	}

	rows := make([]models.SessionResult, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		row, err := a.results.GetBySession(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", id, err)
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

// FingerprintReport is the grouping output plus its run metadata.
type FingerprintReport struct {
	RunID     string                    `json:"runId"`
	Sessions  int                       `json:"sessions"`
	Anomalous int                       `json:"anomalous"`
	Groups    map[string]analysis.Group `json:"groups"`
}

// FingerprintGroups clusters recent fingerprinted sessions and marks
// identity conflicts. A nil policy uses the configured one; the endpoint
// lets a reviewer override it per request. With onlyAnomalous set, clean
// groups are dropped from the report.
func (a *Analyzer) FingerprintGroups(ctx context.Context, policy *analysis.IdentityPolicy, onlyAnomalous bool) (*FingerprintReport, error) {
	det := a.cfg.Current().Detection
	if policy == nil {
		p := det.IdentityPolicy()
		policy = &p
	}

	rows, err := a.results.ListFingerprinted(ctx, det.MaxSessions)
	if err != nil {
		return nil, err
	}

	views := make([]analysis.Session, 0, len(rows))
	for i := range rows {
		// Grouping needs identities only; payload decode errors don't matter here.
		view, _ := sessionView(&rows[i])
		views = append(views, view)
	}

	groups := analysis.GroupByFingerprint(views, *policy)

	anomalous := 0
	for hash, g := range groups {
		if g.IsAnomalous {
			anomalous++
		} else if onlyAnomalous {
			delete(groups, hash)
		}
	}
	a.tel.SetAnomalousGroups(anomalous)

	return &FingerprintReport{
		RunID:     uuid.NewString(),
		Sessions:  len(views),
		Anomalous: anomalous,
		Groups:    groups,
	}, nil
}

// FingerprintAnomaly reports whether the group holding this hash currently
// has an identity conflict. Used right after a save to decide whether to
// raise an anomaly notice.
func (a *Analyzer) FingerprintAnomaly(ctx context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}

	det := a.cfg.Current().Detection
	rows, err := a.results.ListByFingerprint(ctx, hash)
	if err != nil {
		return false, err
	}

	views := make([]analysis.Session, 0, len(rows))
	for i := range rows {
		view, _ := sessionView(&rows[i])
		views = append(views, view)
	}

	groups := analysis.GroupByFingerprint(views, det.IdentityPolicy())
	return groups[hash].IsAnomalous, nil
}

// BehaviorReport is the per-session effort and integrity summary.
type BehaviorReport struct {
	SessionID      string                      `json:"sessionId"`
	TestType       string                      `json:"testType"`
	Score          int                         `json:"score"`
	DurationSec    float64                     `json:"durationSec"`
	Engagement     int                         `json:"engagement"`
	Suspicious     bool                        `json:"suspicious"`
	IntegrityFlags []string                    `json:"integrityFlags,omitempty"`
	Activity       repository.StudyActivityRow `json:"activity"`
}

// BehaviorForSession reconstructs study engagement from the event log and
// combines it with the stored integrity counters.
func (a *Analyzer) BehaviorForSession(ctx context.Context, sessionID string) (*BehaviorReport, error) {
	snapshot := a.cfg.Current()

	row, err := a.results.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	activity, err := a.events.StudyActivity(ctx, row)
	if err != nil {
		return nil, err
	}

	engagement := analysis.EngagementScore(analysis.StudyActivity{
		ViewSeconds:    activity.ViewSeconds,
		MaxScrollDepth: activity.MaxScrollDepth,
		SelfChecks:     activity.SelfChecks,
	})

	var duration float64
	if row.StartedAt != nil && row.CompletedAt != nil {
		if d := row.CompletedAt.Sub(*row.StartedAt).Seconds(); d > 0 {
			duration = d
		}
	}

	return &BehaviorReport{
		SessionID:   row.SessionID,
		TestType:    row.TestType,
		Score:       row.Score,
		DurationSec: duration,
		Engagement:  engagement,
		Suspicious: analysis.SuspiciousResult(row.Score, duration, engagement,
			snapshot.Behavior.Thresholds()),
		IntegrityFlags: analysis.IntegrityFlags(row.TotalFocusLoss, row.TotalBlurTime, row.PrintAttempts,
			snapshot.Integrity.Thresholds()),
		Activity: *activity,
	}, nil
}

func sessionView(row *models.SessionResult) (analysis.Session, error) {
	view := analysis.Session{
		SessionID:       row.SessionID,
		User:            analysis.Identity{LastName: row.LastName, FirstName: row.FirstName},
		TestType:        row.TestType,
		FingerprintHash: row.FingerprintHash,
		ClientIP:        row.ClientIP,
	}

	payload, err := row.BehavioralPayload()
	if err != nil {
		return view, err
	}
	if payload != nil {
		view.PerQuestion = payload.PerQuestion
	}
	return view, nil
}
