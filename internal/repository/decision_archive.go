package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Draks/internal/domain/models"
	"Draks/pkg/logger"
)

// DecisionArchive writes finished batch decisions to ClickHouse for
// offline analysis. Inserts are best-effort: failures are logged, never
// surfaced to job processing.
type DecisionArchive struct {
	db    *sql.DB
	table string
	log   *logger.Logger
}

// NewDecisionArchive creates the archive over an open ClickHouse pool.
func NewDecisionArchive(db *sql.DB, table string, log *logger.Logger) *DecisionArchive {
	if table == "" {
		table = "decisions"
	}
	return &DecisionArchive{db: db, table: table, log: log}
}

// Schema returns the idempotent DDL for the archive table.
func (a *DecisionArchive) Schema() []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		archived_at       DateTime,
		job_id            String,
		user_id           String,
		asset             LowCardinality(String),
		timeframe         LowCardinality(String),
		symbol            String,
		status            LowCardinality(String),
		error_kind        LowCardinality(String),
		label             LowCardinality(String),
		score_raw         Float64,
		expected_return   Float64,
		confidence        Float64,
		position_fraction Float64,
		regime            LowCardinality(String)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(archived_at)
	ORDER BY (job_id, symbol)`, a.table)}
}

// ArchiveJob stores every resolved item of a finished job.
func (a *DecisionArchive) ArchiveJob(ctx context.Context, meta *models.JobMeta, items []models.JobResult) {
	if len(items) == 0 {
		return
	}

	now := time.Now().UTC()
	values := make([]string, 0, len(items))
	args := make([]interface{}, 0, len(items)*14)
	for _, it := range items {
		var label, regime string
		var score, expRet, conf, posFrac float64
		if it.Draks != nil {
			c := it.Draks.Consensus
			label = string(c.Label)
			score = c.ScoreRaw
			expRet = c.ExpectedReturn
			conf = c.Confidence
			posFrac = c.PositionFraction
			regime = string(c.Regime.Label)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			now,
			meta.JobID,
			meta.UserID,
			meta.Asset,
			meta.Timeframe,
			it.Symbol,
			it.Status,
			it.Error,
			label,
			score,
			expRet,
			conf,
			posFrac,
			regime,
		)
	}

	q := fmt.Sprintf(`INSERT INTO %s
		(archived_at, job_id, user_id, asset, timeframe, symbol, status, error_kind,
		 label, score_raw, expected_return, confidence, position_fraction, regime)
		VALUES %s`, a.table, strings.Join(values, ","))

	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		a.log.Warn("decision archive insert failed",
			logger.String("job_id", meta.JobID),
			logger.Int("items", len(items)),
			logger.Error(err))
		return
	}
	a.log.Debug("decision archive stored",
		logger.String("job_id", meta.JobID),
		logger.Int("items", len(items)))
}
