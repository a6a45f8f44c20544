package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/stci-io/stci/internal/domain"
)

// Layout of the data tree. The read API and any third-party reproducing an
// index both depend on these paths, so they are part of the contract.
const (
	observationsDir = "observations"
	indicesDir      = "indices"
	rawDir          = "raw"
)

// Store is the typed data layer: observations as JSONL per date, index
// results as JSON per date, raw source responses archived verbatim.
type Store struct {
	backend Backend
}

// NewStore wraps a backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

func observationsPath(date domain.Date) string {
	return fmt.Sprintf("%s/%s.jsonl", observationsDir, date)
}

func indexPath(date domain.Date) string {
	return fmt.Sprintf("%s/%s.json", indicesDir, date)
}

func rawPath(source string, date domain.Date) string {
	return fmt.Sprintf("%s/%s/%s.json", rawDir, source, date)
}

// WriteObservations stores one date's observations as JSONL, one document
// per line.
func (s *Store) WriteObservations(ctx context.Context, date domain.Date, observations []domain.Observation) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, obs := range observations {
		if err := encoder.Encode(obs); err != nil {
			return fmt.Errorf("encode observation %s: %w", obs.ObservationID, err)
		}
	}
	return s.backend.Write(ctx, observationsPath(date), buf.Bytes())
}

// ReadObservations loads one date's observations. Returns ErrNotFound when
// the date has no stored observations.
func (s *Store) ReadObservations(ctx context.Context, date domain.Date) ([]domain.Observation, error) {
	content, err := s.backend.Read(ctx, observationsPath(date))
	if err != nil {
		return nil, err
	}

	var observations []domain.Observation
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obs domain.Observation
		if err := json.Unmarshal([]byte(line), &obs); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", observationsPath(date), i+1, err)
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// ObservationWindow loads the target date plus lookbackDays of prior
// observations, the shape the indexer needs for carry-forward resolution.
// Days with no stored data are skipped.
func (s *Store) ObservationWindow(ctx context.Context, date domain.Date, lookbackDays int) ([]domain.Observation, error) {
	var window []domain.Observation
	for offset := lookbackDays; offset >= 0; offset-- {
		day := date.AddDays(-offset)
		observations, err := s.ReadObservations(ctx, day)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		window = append(window, observations...)
	}
	return window, nil
}

// WriteIndex stores a computed daily result.
func (s *Store) WriteIndex(ctx context.Context, result *domain.DailyIndexResult) error {
	content, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index for %s: %w", result.Date, err)
	}
	return s.backend.Write(ctx, indexPath(result.Date), content)
}

// ReadIndex loads the result for one date, or ErrNotFound.
func (s *Store) ReadIndex(ctx context.Context, date domain.Date) (*domain.DailyIndexResult, error) {
	content, err := s.backend.Read(ctx, indexPath(date))
	if err != nil {
		return nil, err
	}

	var result domain.DailyIndexResult
	if err := json.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("parse %s: %w", indexPath(date), err)
	}
	return &result, nil
}

// ListIndexDates returns every date with a stored index, newest first.
// Files that do not parse as dates are ignored.
func (s *Store) ListIndexDates(ctx context.Context) ([]domain.Date, error) {
	paths, err := s.backend.List(ctx, indicesDir, ".json")
	if err != nil {
		return nil, err
	}

	dates := make([]domain.Date, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(path.Base(p), ".json")
		date, err := domain.ParseDate(name)
		if err != nil {
			continue
		}
		dates = append(dates, date)
	}
	// List returns ascending paths and date strings sort chronologically;
	// reverse for newest first.
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates, nil
}

// LatestIndexDate returns the most recent date with a stored index, or
// ErrNotFound when none exists.
func (s *Store) LatestIndexDate(ctx context.Context) (domain.Date, error) {
	dates, err := s.ListIndexDates(ctx)
	if err != nil {
		return domain.Date{}, err
	}
	if len(dates) == 0 {
		return domain.Date{}, fmt.Errorf("no index data: %w", ErrNotFound)
	}
	return dates[0], nil
}

// WriteRaw archives a source's raw response for a date, verbatim.
func (s *Store) WriteRaw(ctx context.Context, source string, date domain.Date, content []byte) error {
	return s.backend.Write(ctx, rawPath(source, date), content)
}
