package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/casesync/internal/core"
)

const uniqueViolation = "23505"

// CreatePreset inserts p under a fresh id.
func (s *Store) CreatePreset(ctx context.Context, p core.MappingPreset) (*core.MappingPreset, error) {
	headersJSON, err := json.Marshal(p.CSVHeaders)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}

	p.ID = uuid.NewString()
	var createdAt pgtype.Timestamptz
	err = s.pool.QueryRow(ctx, `
		INSERT INTO mapping_presets (id, name, sku_column, barcode_column, quantity_column, csv_headers)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		toPgUUID(p.ID), p.Name, p.Mapping.SKU, p.Mapping.CaseBarcode, p.Mapping.CaseQuantity, headersJSON,
	).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %q", core.ErrPresetExists, p.Name)
		}
		return nil, fmt.Errorf("create preset: %w", err)
	}

	p.CreatedAt = createdAt.Time
	return &p, nil
}

// ListPresets returns every preset, oldest first.
func (s *Store) ListPresets(ctx context.Context) ([]core.MappingPreset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, sku_column, barcode_column, quantity_column, csv_headers, created_at
		FROM mapping_presets
		ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	presets := []core.MappingPreset{}
	for rows.Next() {
		var (
			id          pgtype.UUID
			p           core.MappingPreset
			headersJSON []byte
			createdAt   pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &p.Name, &p.Mapping.SKU, &p.Mapping.CaseBarcode, &p.Mapping.CaseQuantity, &headersJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		if err := json.Unmarshal(headersJSON, &p.CSVHeaders); err != nil {
			continue // skip presets with unreadable headers
		}
		p.ID = fromPgUUID(id)
		p.CreatedAt = createdAt.Time
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeletePreset removes a preset by id.
func (s *Store) DeletePreset(ctx context.Context, id string) error {
	uid := toPgUUID(id)
	if !uid.Valid {
		return core.ErrPresetNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM mapping_presets WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrPresetNotFound
	}
	return nil
}
