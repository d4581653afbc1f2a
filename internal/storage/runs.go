package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"modgraph/internal/check"
	"modgraph/internal/cycles"
	mgerrors "modgraph/internal/errors"
)

// timeLayout is fixed-width so that stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded check run
type Run struct {
	ID         string       `json:"id" yaml:"id"`
	StartedAt  time.Time    `json:"startedAt" yaml:"startedAt"`
	DurationMs int64        `json:"durationMs" yaml:"durationMs"`
	Status     check.Status `json:"status" yaml:"status"`
	Modules    int          `json:"modules" yaml:"modules"`
	Packages   int          `json:"packages" yaml:"packages"`
	Violations int          `json:"violations" yaml:"violations"`
	Suppressed int          `json:"suppressed" yaml:"suppressed"`
	Baselined  int          `json:"baselined" yaml:"baselined"`
	Parser     string       `json:"parser,omitempty" yaml:"parser,omitempty"`
}

// RunRepository provides access to recorded runs
type RunRepository struct {
	db    *DB
	level int
}

// NewRunRepository creates a run repository. level is the zstd level used for
// stored results (1 fastest, 4 best).
func NewRunRepository(db *DB, level int) *RunRepository {
	if level < 1 || level > 4 {
		level = 3
	}
	return &RunRepository{db: db, level: level}
}

// Record stores a check result and its findings and returns the new run ID
func (r *RunRepository) Record(res *check.Result) (string, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return "", mgerrors.Wrap(mgerrors.StorageError, err, "failed to encode run")
	}
	blob, err := compress(payload, r.level)
	if err != nil {
		return "", mgerrors.Wrap(mgerrors.StorageError, err, "failed to compress run")
	}

	id := uuid.New().String()
	err = r.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, started_at, duration_ms, status, modules, packages,
				violations, suppressed, baselined, parser, result_zstd)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id,
			res.StartedAt.UTC().Format(timeLayout),
			res.DurationMs,
			string(res.Status),
			res.Summary.Modules,
			res.Summary.Packages,
			res.Summary.Violations,
			res.Summary.Suppressed,
			res.Summary.Baselined,
			res.Parser,
			blob,
		)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO findings (run_id, fingerprint, kind, module, members, suppressed, baselined)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, list := range [][]cycleFinding{asRows(res.Violations), asRows(res.Suppressed)} {
			for _, f := range list {
				if _, err := stmt.Exec(id, f.fingerprint, f.kind, f.module, f.members, f.suppressed, f.baselined); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", mgerrors.Wrap(mgerrors.StorageError, err, "failed to record run")
	}

	r.db.logger.Debug("Recorded run", "id", id, "status", res.Status)
	return id, nil
}

// List returns the most recent runs, newest first. limit <= 0 means all.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	query := `
		SELECT id, started_at, duration_ms, status, modules, packages,
			violations, suppressed, baselined, parser
		FROM runs
		ORDER BY started_at DESC, id
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.conn.Query(query, args...)
	if err != nil {
		return nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to read run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to list runs")
	}
	return runs, nil
}

// Get returns a run and its full result. id may be a unique prefix.
func (r *RunRepository) Get(id string) (*Run, *check.Result, error) {
	rows, err := r.db.conn.Query(`
		SELECT id, started_at, duration_ms, status, modules, packages,
			violations, suppressed, baselined, parser, result_zstd
		FROM runs
		WHERE id LIKE ? || '%'
		LIMIT 2
	`, strings.ReplaceAll(id, "%", ""))
	if err != nil {
		return nil, nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to read run")
	}
	defer rows.Close()

	var run *Run
	var blob []byte
	for rows.Next() {
		if run != nil {
			return nil, nil, mgerrors.Errorf(mgerrors.StorageError, "run id %q is ambiguous", id)
		}
		run = &Run{}
		var started, status string
		if err := rows.Scan(&run.ID, &started, &run.DurationMs, &status, &run.Modules, &run.Packages,
			&run.Violations, &run.Suppressed, &run.Baselined, &run.Parser, &blob); err != nil {
			return nil, nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to read run")
		}
		run.Status = check.Status(status)
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, nil, mgerrors.Wrap(mgerrors.StorageError, err, "invalid run timestamp")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to read run")
	}
	if run == nil {
		return nil, nil, mgerrors.Errorf(mgerrors.StorageError, "run %q not found", id)
	}

	payload, err := decompress(blob)
	if err != nil {
		return nil, nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to read run result")
	}
	var res check.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, nil, mgerrors.Wrap(mgerrors.StorageError, err, "failed to decode run result")
	}
	return run, &res, nil
}

// FirstSeen returns when a finding fingerprint was first recorded, or the
// zero time when it never was
func (r *RunRepository) FirstSeen(fingerprint string) (time.Time, error) {
	var started sql.NullString
	err := r.db.conn.QueryRow(`
		SELECT MIN(runs.started_at)
		FROM findings JOIN runs ON runs.id = findings.run_id
		WHERE findings.fingerprint = ?
	`, fingerprint).Scan(&started)
	if err != nil {
		return time.Time{}, mgerrors.Wrap(mgerrors.StorageError, err, "failed to query finding history")
	}
	if !started.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, started.String)
	if err != nil {
		return time.Time{}, mgerrors.Wrap(mgerrors.StorageError, err, "invalid run timestamp")
	}
	return t, nil
}

// Prune keeps the newest keep runs and deletes the rest. Returns the number
// of deleted runs.
func (r *RunRepository) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := r.db.conn.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, mgerrors.Wrap(mgerrors.StorageError, err, "failed to prune runs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mgerrors.Wrap(mgerrors.StorageError, err, "failed to prune runs")
	}
	if n > 0 {
		r.db.logger.Debug("Pruned runs", "deleted", n, "kept", keep)
	}
	return int(n), nil
}

type cycleFinding struct {
	fingerprint string
	kind        string
	module      string
	members     string
	suppressed  bool
	baselined   bool
}

func asRows(findings []cycles.Finding) []cycleFinding {
	out := make([]cycleFinding, len(findings))
	for i, f := range findings {
		out[i] = cycleFinding{
			fingerprint: f.Fingerprint(),
			kind:        string(f.Kind),
			module:      f.Module,
			members:     strings.Join(f.Members, ","),
			suppressed:  f.Suppressed,
			baselined:   f.Baselined,
		}
	}
	return out
}

func scanRun(rows *sql.Rows) (*Run, error) {
	run := &Run{}
	var started, status string
	if err := rows.Scan(&run.ID, &started, &run.DurationMs, &status, &run.Modules, &run.Packages,
		&run.Violations, &run.Suppressed, &run.Baselined, &run.Parser); err != nil {
		return nil, err
	}
	run.Status = check.Status(status)

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("invalid run timestamp %q: %w", started, err)
	}
	run.StartedAt = t
	return run, nil
}
