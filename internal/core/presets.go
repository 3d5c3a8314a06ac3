package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PresetMatchThreshold is the minimum header overlap for a preset to match.
const PresetMatchThreshold = 0.7

// Preset errors.
var (
	ErrPresetNotFound     = errors.New("mapping preset not found")
	ErrPresetExists       = errors.New("mapping preset already exists")
	ErrPresetNameRequired = errors.New("preset name is required")
)

// MappingPreset is a saved FieldMapping together with the headers of the
// file it was created from.
type MappingPreset struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Mapping    FieldMapping `json:"mapping"`
	CSVHeaders []string     `json:"csvHeaders"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// PresetMatch is a preset scored against a file's headers.
type PresetMatch struct {
	Preset     MappingPreset `json:"preset"`
	MatchScore float64       `json:"matchScore"`
}

// PresetStore persists mapping presets.
type PresetStore interface {
	CreatePreset(ctx context.Context, p MappingPreset) (*MappingPreset, error)
	ListPresets(ctx context.Context) ([]MappingPreset, error)
	DeletePreset(ctx context.Context, id string) error
}

// Presets validates and matches mapping presets on top of a PresetStore.
type Presets struct {
	store PresetStore
}

func NewPresets(store PresetStore) *Presets {
	return &Presets{store: store}
}

// Create saves a named preset. The mapping must be complete and every mapped
// column must appear in headers.
func (p *Presets) Create(ctx context.Context, name string, mapping FieldMapping, headers []string) (*MappingPreset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPresetNameRequired
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	if !MappingUsesHeaders(mapping, headers) {
		return nil, fmt.Errorf("%w: mapped column missing from headers", ErrIncompleteMapping)
	}

	return p.store.CreatePreset(ctx, MappingPreset{
		Name:       name,
		Mapping:    mapping,
		CSVHeaders: headers,
	})
}

func (p *Presets) List(ctx context.Context) ([]MappingPreset, error) {
	return p.store.ListPresets(ctx)
}

func (p *Presets) Delete(ctx context.Context, id string) error {
	return p.store.DeletePreset(ctx, id)
}

// Match returns presets whose saved headers overlap csvHeaders by at least
// PresetMatchThreshold, best first.
func (p *Presets) Match(ctx context.Context, csvHeaders []string) ([]PresetMatch, error) {
	presets, err := p.store.ListPresets(ctx)
	if err != nil {
		return nil, err
	}

	matches := []PresetMatch{}
	for _, preset := range presets {
		score := matchHeaders(csvHeaders, preset.CSVHeaders)
		if score >= PresetMatchThreshold {
			matches = append(matches, PresetMatch{Preset: preset, MatchScore: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	return matches, nil
}

// matchHeaders returns the fraction of presetHeaders present in csvHeaders,
// comparing trimmed lowercase names.
func matchHeaders(csvHeaders, presetHeaders []string) float64 {
	if len(presetHeaders) == 0 {
		return 0
	}

	csvSet := make(map[string]bool, len(csvHeaders))
	for _, h := range csvHeaders {
		csvSet[normalizeHeader(h)] = true
	}

	matched := 0
	for _, h := range presetHeaders {
		if csvSet[normalizeHeader(h)] {
			matched++
		}
	}
	return float64(matched) / float64(len(presetHeaders))
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
