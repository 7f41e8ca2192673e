// Package store persists decisions and LLM calls in SQLite.
//
// A decision row is keyed by (strategy, report) so a batch run can resume
// where an interrupted one stopped. sql.DB pools connections, so a Store is
// safe for concurrent use.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jackzampolin/reportcheck/internal/engine"
	"github.com/jackzampolin/reportcheck/internal/llmcall"
)

// Store is a SQLite-backed decision and call log.
type Store struct {
	db *sql.DB
}

// Open opens or creates a database at path, creating parent directories.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return initialize(db)
}

// OpenInMemory creates an in-memory database for tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	return initialize(db)
}

func initialize(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS decisions (
			strategy TEXT NOT NULL,
			report_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			consistent INTEGER NOT NULL,
			chain TEXT NOT NULL,
			path TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			cost_usd REAL NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (strategy, report_id)
		);

		CREATE INDEX IF NOT EXISTS idx_decisions_run
		ON decisions(run_id);

		CREATE TABLE IF NOT EXISTS llm_calls (
			id TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			run_id TEXT,
			report_id TEXT,
			operation TEXT NOT NULL,
			prompt_key TEXT,
			prompt_hash TEXT,
			provider TEXT,
			model TEXT,
			temperature REAL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			input_cost_usd REAL NOT NULL,
			output_cost_usd REAL NOT NULL,
			response TEXT,
			success INTEGER NOT NULL,
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_llm_calls_report
		ON llm_calls(report_id, timestamp);

		CREATE INDEX IF NOT EXISTS idx_llm_calls_run
		ON llm_calls(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// DecisionRecord is a stored decision.
type DecisionRecord struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	ReportID     string        `json:"report_id" yaml:"report_id"`
	Strategy     string        `json:"strategy" yaml:"strategy"`
	Consistent   bool          `json:"consistent" yaml:"consistent"`
	Chain        string        `json:"chain" yaml:"chain"`
	Path         []engine.Step `json:"path" yaml:"path"`
	InputTokens  int           `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int           `json:"output_tokens" yaml:"output_tokens"`
	CostUSD      float64       `json:"cost_usd" yaml:"cost_usd"`
	DurationMs   int64         `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
}

// SaveDecision stores d under runID, replacing any earlier decision for the
// same strategy and report.
func (s *Store) SaveDecision(ctx context.Context, runID string, d *engine.Decision) error {
	path, err := json.Marshal(d.Path)
	if err != nil {
		return fmt.Errorf("failed to encode decision path: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO decisions
			(strategy, report_id, run_id, consistent, chain, path,
			 input_tokens, output_tokens, cost_usd, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(d.Strategy), d.ReportID, runID, d.Consistent, d.Chain(), string(path),
		d.Usage.InputTokens, d.Usage.OutputTokens, d.Usage.Cost(), d.Duration.Milliseconds(),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save decision for report %s: %w", d.ReportID, err)
	}
	return nil
}

// HasDecision reports whether a decision exists for the strategy and report.
func (s *Store) HasDecision(ctx context.Context, strategy, reportID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM decisions WHERE strategy = ? AND report_id = ?",
		strategy, reportID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query decision: %w", err)
	}
	return n > 0, nil
}

// ListDecisions returns the decisions for strategy ordered by report.
// An empty strategy lists every decision.
func (s *Store) ListDecisions(ctx context.Context, strategy string) ([]DecisionRecord, error) {
	query := `SELECT run_id, report_id, strategy, consistent, chain, path,
		input_tokens, output_tokens, cost_usd, duration_ms, created_at FROM decisions`
	var args []any
	if strategy != "" {
		query += " WHERE strategy = ?"
		args = append(args, strategy)
	}
	query += " ORDER BY strategy, CAST(report_id AS INTEGER), report_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	records := []DecisionRecord{}
	for rows.Next() {
		var (
			r       DecisionRecord
			path    string
			created int64
		)
		if err := rows.Scan(&r.RunID, &r.ReportID, &r.Strategy, &r.Consistent, &r.Chain, &path,
			&r.InputTokens, &r.OutputTokens, &r.CostUSD, &r.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if err := json.Unmarshal([]byte(path), &r.Path); err != nil {
			return nil, fmt.Errorf("failed to decode path for report %s: %w", r.ReportID, err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return records, nil
}

// SaveCalls stores recorded LLM calls in one transaction.
func (s *Store) SaveCalls(ctx context.Context, calls []*llmcall.Call) error {
	if len(calls) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO llm_calls
			(id, timestamp, latency_ms, run_id, report_id, operation, prompt_key, prompt_hash,
			 provider, model, temperature, input_tokens, output_tokens, input_cost_usd,
			 output_cost_usd, response, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range calls {
		var temp sql.NullFloat64
		if c.Temperature != nil {
			temp = sql.NullFloat64{Float64: *c.Temperature, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			c.ID, c.Timestamp.UnixMilli(), c.LatencyMs, c.RunID, c.ReportID, c.Operation,
			c.PromptKey, c.PromptHash, c.Provider, c.Model, temp,
			c.InputTokens, c.OutputTokens, c.InputCost, c.OutputCost,
			c.Response, c.Success, c.Error)
		if err != nil {
			return fmt.Errorf("failed to insert call %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ llmcall.Writer = (*Store)(nil)

// ListCalls returns recorded calls matching f, oldest first.
func (s *Store) ListCalls(ctx context.Context, f llmcall.QueryFilter) ([]*llmcall.Call, error) {
	var (
		where []string
		args  []any
	)
	eq := func(col, v string) {
		if v != "" {
			where = append(where, col+" = ?")
			args = append(args, v)
		}
	}
	eq("run_id", f.RunID)
	eq("report_id", f.ReportID)
	eq("operation", f.Operation)
	eq("provider", f.Provider)
	eq("model", f.Model)
	if f.After != nil {
		where = append(where, "timestamp > ?")
		args = append(args, f.After.UnixMilli())
	}
	if f.Before != nil {
		where = append(where, "timestamp < ?")
		args = append(args, f.Before.UnixMilli())
	}
	if f.Success != nil {
		where = append(where, "success = ?")
		args = append(args, *f.Success)
	}

	query := `SELECT id, timestamp, latency_ms, run_id, report_id, operation, prompt_key,
		prompt_hash, provider, model, temperature, input_tokens, output_tokens,
		input_cost_usd, output_cost_usd, response, success, error FROM llm_calls`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	calls := []*llmcall.Call{}
	for rows.Next() {
		var (
			c                                           llmcall.Call
			ts                                          int64
			runID, reportID, key, hash, prov, model, ee sql.NullString
			resp                                        sql.NullString
			temp                                        sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &ts, &c.LatencyMs, &runID, &reportID, &c.Operation, &key,
			&hash, &prov, &model, &temp, &c.InputTokens, &c.OutputTokens,
			&c.InputCost, &c.OutputCost, &resp, &c.Success, &ee); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		c.Timestamp = time.UnixMilli(ts).UTC()
		c.RunID, c.ReportID = runID.String, reportID.String
		c.PromptKey, c.PromptHash = key.String, hash.String
		c.Provider, c.Model = prov.String, model.String
		c.Response, c.Error = resp.String, ee.String
		if temp.Valid {
			t := temp.Float64
			c.Temperature = &t
		}
		calls = append(calls, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calls: %w", err)
	}
	return calls, nil
}

// ReportCost is the oracle spend attributed to one report.
type ReportCost struct {
	ReportID     string  `json:"report_id" yaml:"report_id"`
	Calls        int     `json:"calls" yaml:"calls"`
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	CostUSD      float64 `json:"cost_usd" yaml:"cost_usd"`
}

// CostByReport sums recorded calls per report, optionally for one run.
func (s *Store) CostByReport(ctx context.Context, runID string) ([]ReportCost, error) {
	query := `SELECT report_id, COUNT(*), SUM(input_tokens), SUM(output_tokens),
		SUM(input_cost_usd + output_cost_usd) FROM llm_calls WHERE report_id != ''`
	var args []any
	if runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}
	query += " GROUP BY report_id ORDER BY CAST(report_id AS INTEGER), report_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query costs: %w", err)
	}
	defer rows.Close()

	costs := []ReportCost{}
	for rows.Next() {
		var c ReportCost
		if err := rows.Scan(&c.ReportID, &c.Calls, &c.InputTokens, &c.OutputTokens, &c.CostUSD); err != nil {
			return nil, fmt.Errorf("failed to scan cost: %w", err)
		}
		costs = append(costs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating costs: %w", err)
	}
	return costs, nil
}
