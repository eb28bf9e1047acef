// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes the records matching q to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, q Query) error {
	records, err := s.exportRecords(ctx, q)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the records matching q to w as an indented JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, q Query) error {
	records, err := s.exportRecords(ctx, q)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportRecords(ctx context.Context, q Query) ([]Record, error) {
	records, err := s.Reviews(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
