package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/motortest"
)

// Reduction is one row of the ledger: the outcome of processing one motor
// file once.
type Reduction struct {
	RunID         string
	SessionID     string
	FileName      string
	SourcePath    string
	ContentSHA256 string
	MotorType     string
	Manufacturer  string

	Verdict  motortest.Verdict
	Comments string

	TotalImpulse            float64
	MaxImpulse              float64
	BurnTime                float64
	AverageImpulse          float64
	CalculatedEjectionDelay float64
	NoiseLevel              float64
	BaselineShift           float64

	ToolVersion string
	ProcessedAt time.Time
}

// ReductionFromRecord flattens a processed record into a ledger row.
// Records that never reached the reducer carry zero metrics.
func ReductionFromRecord(rec *motortest.TestRecord) Reduction {
	r := Reduction{
		RunID:         rec.RunID,
		SessionID:     rec.SessionID,
		FileName:      rec.BaseName(),
		SourcePath:    rec.SourcePath,
		ContentSHA256: rec.ContentSHA256,
		MotorType:     rec.Header.MotorType.Or(""),
		Manufacturer:  rec.Header.Manufacturer.Or(""),
		Verdict:       rec.Verdict(),
		Comments:      rec.Comments(),
		ToolVersion:   rec.ToolVersion,
		ProcessedAt:   rec.ProcessedAt,
	}
	if res := rec.Result; res != nil {
		r.TotalImpulse = res.TotalImpulse
		r.MaxImpulse = res.MaxImpulse
		r.BurnTime = res.BurnTime
		r.AverageImpulse = res.AverageImpulse
		r.CalculatedEjectionDelay = res.CalculatedEjectionDelay
		r.NoiseLevel = res.NoiseLevel
		r.BaselineShift = res.BaselineShift
	}
	return r
}

const reductionColumns = `run_id, session_id, file_name, source_path, content_sha256,
	motor_type, manufacturer, verdict, comments,
	total_impulse, max_impulse, burn_time, average_impulse,
	calculated_ejection_delay, noise_level, baseline_shift,
	tool_version, processed_at`

// RecordReduction appends r to the ledger. Run IDs are unique.
func (db *DB) RecordReduction(ctx context.Context, r Reduction) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO reductions (`+reductionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.SessionID, r.FileName, r.SourcePath, r.ContentSHA256,
		r.MotorType, r.Manufacturer, r.Verdict.String(), r.Comments,
		r.TotalImpulse, r.MaxImpulse, r.BurnTime, r.AverageImpulse,
		r.CalculatedEjectionDelay, r.NoiseLevel, r.BaselineShift,
		r.ToolVersion, r.ProcessedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record reduction %s: %w", r.RunID, err)
	}
	db.log.Debug("recorded reduction",
		zap.String("run_id", r.RunID),
		zap.String("file_name", r.FileName),
		zap.String("verdict", r.Verdict.String()))
	return nil
}

// ListReductionsByFile returns every reduction recorded under fileName,
// oldest first.
func (db *DB) ListReductionsByFile(ctx context.Context, fileName string) ([]Reduction, error) {
	return db.queryReductions(ctx,
		`SELECT `+reductionColumns+` FROM reductions
		WHERE file_name = ? ORDER BY processed_at, run_id`, fileName)
}

// ListReductionsBySession returns the reductions of one session ordered by
// motor type and file name.
func (db *DB) ListReductionsBySession(ctx context.Context, sessionID string) ([]Reduction, error) {
	return db.queryReductions(ctx,
		`SELECT `+reductionColumns+` FROM reductions
		WHERE session_id = ? ORDER BY motor_type, file_name, processed_at`, sessionID)
}

func (db *DB) queryReductions(ctx context.Context, query string, args ...any) ([]Reduction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reductions: %w", err)
	}
	defer rows.Close()

	var out []Reduction
	for rows.Next() {
		r, err := scanReduction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reductions: %w", err)
	}
	return out, nil
}

func scanReduction(rows *sql.Rows) (Reduction, error) {
	var (
		r         Reduction
		verdict   string
		processed int64
	)
	if err := rows.Scan(
		&r.RunID, &r.SessionID, &r.FileName, &r.SourcePath, &r.ContentSHA256,
		&r.MotorType, &r.Manufacturer, &verdict, &r.Comments,
		&r.TotalImpulse, &r.MaxImpulse, &r.BurnTime, &r.AverageImpulse,
		&r.CalculatedEjectionDelay, &r.NoiseLevel, &r.BaselineShift,
		&r.ToolVersion, &processed,
	); err != nil {
		return Reduction{}, fmt.Errorf("failed to scan reduction: %w", err)
	}
	v, err := motortest.ParseVerdict(verdict)
	if err != nil {
		return Reduction{}, fmt.Errorf("reduction %s: %w", r.RunID, err)
	}
	r.Verdict = v
	r.ProcessedAt = time.Unix(0, processed).UTC()
	return r, nil
}
