package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/casesync/internal/core"
)

// DefaultHistoryLimit is used when RecentRuns is given a non-positive limit.
const DefaultHistoryLimit = 50

// RecordRun inserts a finished run.
func (s *Store) RecordRun(ctx context.Context, rec core.RunRecord) error {
	errs := rec.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO processing_runs (
			id, file_name, account_id, status, error,
			success_count, error_count, total_processed, errors,
			ip_address, user_agent, started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		toPgUUID(rec.ID),
		toPgText(rec.FileName),
		toPgText(rec.AccountID),
		string(rec.Status),
		toPgText(rec.Error),
		rec.SuccessCount,
		rec.ErrorCount,
		rec.TotalProcessed,
		errorsJSON,
		parseIP(rec.IPAddress),
		toPgText(rec.UserAgent),
		pgtype.Timestamptz{Time: rec.StartedAt, Valid: true},
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]core.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, account_id, status, error,
		       success_count, error_count, total_processed, errors,
		       ip_address, user_agent, started_at, duration_ms
		FROM processing_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []core.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

func scanRun(rows pgx.Rows) (core.RunRecord, error) {
	var (
		id         pgtype.UUID
		fileName   pgtype.Text
		accountID  pgtype.Text
		status     string
		runErr     pgtype.Text
		success    int32
		failed     int32
		total      int32
		errorsJSON []byte
		ipAddress  *netip.Addr
		userAgent  pgtype.Text
		startedAt  pgtype.Timestamptz
		durationMS int64
	)
	if err := rows.Scan(
		&id, &fileName, &accountID, &status, &runErr,
		&success, &failed, &total, &errorsJSON,
		&ipAddress, &userAgent, &startedAt, &durationMS,
	); err != nil {
		return core.RunRecord{}, err
	}

	rec := core.RunRecord{
		ID:             fromPgUUID(id),
		FileName:       fromPgText(fileName),
		AccountID:      fromPgText(accountID),
		Status:         core.RunStatus(status),
		Error:          fromPgText(runErr),
		SuccessCount:   int(success),
		ErrorCount:     int(failed),
		TotalProcessed: int(total),
		UserAgent:      fromPgText(userAgent),
		StartedAt:      startedAt.Time,
		Duration:       time.Duration(durationMS) * time.Millisecond,
	}
	if ipAddress != nil {
		rec.IPAddress = ipAddress.String()
	}
	_ = json.Unmarshal(errorsJSON, &rec.Errors)
	return rec, nil
}

// PruneRuns deletes runs that started before now minus olderThan.
func (s *Store) PruneRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, `DELETE FROM processing_runs WHERE started_at < $1`,
		pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
