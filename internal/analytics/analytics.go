// Package analytics summarises the record store: compliance outcomes,
// proposed compensation, the candidate funnel and stage fallback rates.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/lucasnoah/hirefactory/internal/stage"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
	Rebind(query string) string
}

// sinceClause appends a timestamp filter. Timestamps are stored as RFC 3339
// text, so a date or full timestamp prefix compares correctly as a string.
func sinceClause(query, column, since string, args []interface{}) (string, []interface{}) {
	if since == "" {
		return query, args
	}
	return query + " AND " + column + " >= ?", append(args, since)
}

// ComplianceSummary holds outcomes for one compliance check type.
type ComplianceSummary struct {
	CheckType string  `json:"check_type"`
	Total     int     `json:"total"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	Fallback  int     `json:"fallback"`
	PassRate  float64 `json:"pass_pct"`
}

// QueryComplianceSummary returns pass/fail counts per check type. Fallback
// counts rows written from the reviewer's synthesized verdict.
func QueryComplianceSummary(database DB, since string) ([]ComplianceSummary, error) {
	query := `
		SELECT check_type,
			COUNT(*),
			SUM(CASE WHEN result = 'PASS' THEN 1 ELSE 0 END),
			SUM(CASE WHEN result = 'FAIL' THEN 1 ELSE 0 END),
			SUM(CASE WHEN checked_by = ? THEN 1 ELSE 0 END)
		FROM compliance_logs
		WHERE 1 = 1`
	args := []interface{}{stage.CheckedByFallback}
	query, args = sinceClause(query, "checked_at", since, args)
	query += ` GROUP BY check_type`

	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query compliance summary: %w", err)
	}
	defer rows.Close()

	var results []ComplianceSummary
	for rows.Next() {
		var s ComplianceSummary
		if err := rows.Scan(&s.CheckType, &s.Total, &s.Passed, &s.Failed, &s.Fallback); err != nil {
			return nil, fmt.Errorf("scan compliance summary: %w", err)
		}
		s.PassRate = pct(s.Passed, s.Total)
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CheckType < results[j].CheckType
	})
	return results, nil
}

// ProposalStats describes the distribution of proposed base salaries.
type ProposalStats struct {
	Count     int     `json:"count"`
	AvgBase   float64 `json:"avg_base"`
	MinBase   float64 `json:"min_base"`
	P50Base   float64 `json:"p50_base"`
	P95Base   float64 `json:"p95_base"`
	MaxBase   float64 `json:"max_base"`
	AvgEquity float64 `json:"avg_equity"`
	AvgBonus  float64 `json:"avg_bonus"`
}

// QueryProposalStats returns base salary percentiles and equity/bonus
// averages over compensation proposals.
func QueryProposalStats(database DB, since string) (ProposalStats, error) {
	var stats ProposalStats
	query := `SELECT base_salary, equity_amount, bonus_target FROM compensation_proposals WHERE 1 = 1`
	query, args := sinceClause(query, "created_at", since, nil)

	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return stats, fmt.Errorf("query proposal stats: %w", err)
	}
	defer rows.Close()

	var bases, equity, bonus []float64
	for rows.Next() {
		var b, e, bo float64
		if err := rows.Scan(&b, &e, &bo); err != nil {
			return stats, fmt.Errorf("scan proposal: %w", err)
		}
		bases = append(bases, b)
		equity = append(equity, e)
		bonus = append(bonus, bo)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	if len(bases) == 0 {
		return stats, nil
	}

	sort.Float64s(bases)
	stats.Count = len(bases)
	stats.AvgBase = avg(bases)
	stats.MinBase = bases[0]
	stats.P50Base = percentile(bases, 50)
	stats.P95Base = percentile(bases, 95)
	stats.MaxBase = bases[len(bases)-1]
	stats.AvgEquity = avg(equity)
	stats.AvgBonus = avg(bonus)
	return stats, nil
}

// FunnelStage is the number of candidates currently in one status.
type FunnelStage struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Pct    float64 `json:"pct"`
}

// funnelOrder ranks the statuses the pipeline writes; others sort after them.
var funnelOrder = map[string]int{
	stage.CandidateScreening:          0,
	stage.CandidateInterviewScheduled: 1,
}

// QueryCandidateFunnel counts candidates per status.
func QueryCandidateFunnel(database DB) ([]FunnelStage, error) {
	rows, err := database.Conn().Query(`SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query candidate funnel: %w", err)
	}
	defer rows.Close()

	var results []FunnelStage
	total := 0
	for rows.Next() {
		var f FunnelStage
		if err := rows.Scan(&f.Status, &f.Count); err != nil {
			return nil, fmt.Errorf("scan funnel row: %w", err)
		}
		total += f.Count
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		results[i].Pct = pct(results[i].Count, total)
	}
	sort.Slice(results, func(i, j int) bool {
		ri, iok := funnelOrder[results[i].Status]
		rj, jok := funnelOrder[results[j].Status]
		if iok != jok {
			return iok
		}
		if iok && ri != rj {
			return ri < rj
		}
		return results[i].Status < results[j].Status
	})
	return results, nil
}

// StageFallbackRate holds how often a stage substituted fallback data.
type StageFallbackRate struct {
	Stage       string  `json:"stage"`
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	Fallback    int     `json:"fallback"`
	Failed      int     `json:"failed"`
	FallbackPct float64 `json:"fallback_pct"`
	FailedPct   float64 `json:"failed_pct"`
}

// QueryStageFallbackRates returns per-stage outcome counts from
// pipeline_events, in pipeline order.
func QueryStageFallbackRates(database DB, since string) ([]StageFallbackRate, error) {
	query := `
		SELECT stage,
			COUNT(*),
			SUM(CASE WHEN event = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN event = 'fallback' THEN 1 ELSE 0 END),
			SUM(CASE WHEN event = 'failed' THEN 1 ELSE 0 END)
		FROM pipeline_events
		WHERE stage != ''`
	query, args := sinceClause(query, "timestamp", since, nil)
	query += ` GROUP BY stage`

	rows, err := database.Conn().Query(database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query stage fallback rates: %w", err)
	}
	defer rows.Close()

	var results []StageFallbackRate
	for rows.Next() {
		var r StageFallbackRate
		if err := rows.Scan(&r.Stage, &r.Total, &r.Completed, &r.Fallback, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan stage fallback rate: %w", err)
		}
		r.FallbackPct = pct(r.Fallback, r.Total)
		r.FailedPct = pct(r.Failed, r.Total)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(stage.Order))
	for i, name := range stage.Order {
		rank[name] = i + 1
	}
	sort.Slice(results, func(i, j int) bool {
		ri, rj := rank[results[i].Stage], rank[results[j].Stage]
		if ri == 0 {
			ri = len(rank) + 1
		}
		if rj == 0 {
			rj = len(rank) + 1
		}
		if ri != rj {
			return ri < rj
		}
		return results[i].Stage < results[j].Stage
	})
	return results, nil
}

// RunCount is the number of distinct runs and how many ended in failure.
type RunCount struct {
	Runs   int `json:"runs"`
	Failed int `json:"failed"`
}

// QueryRunCount counts recorded runs.
func QueryRunCount(database DB, since string) (RunCount, error) {
	var rc RunCount
	query := `
		SELECT COUNT(DISTINCT run_id),
			COUNT(DISTINCT CASE WHEN event = 'failed' THEN run_id END)
		FROM pipeline_events
		WHERE 1 = 1`
	query, args := sinceClause(query, "timestamp", since, nil)
	if err := database.Conn().QueryRow(database.Rebind(query), args...).Scan(&rc.Runs, &rc.Failed); err != nil {
		return rc, fmt.Errorf("query run count: %w", err)
	}
	return rc, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
