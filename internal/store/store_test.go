// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/contract-review/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock(t *testing.T, ts time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })
}

func review(company, name string) types.Review {
	r := types.DefaultReview(company)
	r.ContractName = name
	r.ParsedFrom = types.ParsedJSON
	r.Stats = types.DocumentStats{Total: 2, Successful: 2}
	return r
}

// --- runs ---

func TestBeginAndFinishRun(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	start := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	fixedClock(t, start)

	id, err := s.BeginRun(ctx, RunInfo{ProcessingPath: "/contracts", Workbook: "q3.xlsx", Provider: "ollama", Model: "llama2:3.1b", Prompt: "analysis"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].FinishedAt)
	assert.True(t, runs[0].StartedAt.Equal(start))

	fixedClock(t, start.Add(5*time.Minute))
	require.NoError(t, s.FinishRun(ctx, id, RunCounts{Total: 3, Successful: 2, Failed: 1}))

	runs, err = s.Runs(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, 5*time.Minute, runs[0].FinishedAt.Sub(runs[0].StartedAt))
	assert.Equal(t, RunCounts{Total: 3, Successful: 2, Failed: 1}, runs[0].RunCounts)
	assert.Equal(t, "q3.xlsx", runs[0].Workbook)
	assert.Equal(t, "llama2:3.1b", runs[0].Model)

	assert.ErrorIs(t, s.FinishRun(ctx, 99, RunCounts{}), ErrNotFound)
}

func TestRunsNewestFirst(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.BeginRun(ctx, RunInfo{})
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[0].ID)
	assert.Equal(t, int64(2), runs[1].ID)
}

// --- reviews ---

func TestLastSuccessful(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	_, _, err := s.LastSuccessful(ctx, "Acme")
	assert.ErrorIs(t, err, ErrNotFound)

	run1, err := s.BeginRun(ctx, RunInfo{})
	require.NoError(t, err)
	require.NoError(t, s.SaveReview(ctx, run1, review("Acme", "MSA v1"), "fp1"))

	run2, err := s.BeginRun(ctx, RunInfo{})
	require.NoError(t, err)
	require.NoError(t, s.SaveFailure(ctx, run2, types.Failure{Company: "Acme", Step: "analyze", Error: "timeout"}, "fp2"))

	got, fp, err := s.LastSuccessful(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "fp1", fp, "failures are not reused")
	assert.Equal(t, "MSA v1", got.ContractName)
	assert.Equal(t, types.DocumentStats{Total: 2, Successful: 2}, got.Stats)

	require.NoError(t, s.SaveSkipped(ctx, run2, *got, "fp1"))
	_, fp, err = s.LastSuccessful(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "fp1", fp)
}

func TestReviewsFilters(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	run1, _ := s.BeginRun(ctx, RunInfo{})
	require.NoError(t, s.SaveReview(ctx, run1, review("Acme", "MSA"), "a"))
	require.NoError(t, s.SaveFailure(ctx, run1, types.Failure{Company: "Globex", Step: "extract", Error: "no documents"}, ""))
	run2, _ := s.BeginRun(ctx, RunInfo{})
	require.NoError(t, s.SaveReview(ctx, run2, review("Acme", "MSA 2"), "b"))

	tests := []struct {
		name      string
		q         Query
		wantCount int
	}{
		{"all", Query{}, 3},
		{"company", Query{Company: "Acme"}, 2},
		{"run", Query{RunID: run1}, 2},
		{"status", Query{Status: StatusFailed}, 1},
		{"limit", Query{Limit: 1}, 1},
		{"none", Query{Company: "Initech"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.Reviews(ctx, tt.q)
			require.NoError(t, err)
			assert.Len(t, recs, tt.wantCount)
		})
	}

	recs, err := s.Reviews(ctx, Query{Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "MSA 2", recs[0].Review.ContractName, "newest first")

	failed, err := s.Reviews(ctx, Query{Status: StatusFailed})
	require.NoError(t, err)
	assert.Equal(t, "extract", failed[0].Step)
	assert.Equal(t, "no documents", failed[0].Error)
	assert.Nil(t, failed[0].Review)
}

// --- export ---

func TestExportJSON(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	var empty bytes.Buffer
	require.NoError(t, s.ExportJSON(ctx, &empty, Query{}))
	assert.Equal(t, "[]\n", empty.String())

	run, _ := s.BeginRun(ctx, RunInfo{})
	require.NoError(t, s.SaveReview(ctx, run, review("Acme", "MSA"), "fp"))

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(ctx, &buf, Query{Company: "Acme"}))

	var recs []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, StatusSuccess, recs[0].Status)
	assert.Equal(t, "MSA", recs[0].Review.ContractName)
}

func TestExportYAML(t *testing.T) {
	s := testSetup(t)
	ctx := context.Background()

	run, _ := s.BeginRun(ctx, RunInfo{})
	require.NoError(t, s.SaveReview(ctx, run, review("Acme", "MSA"), "fp"))
	require.NoError(t, s.SaveFailure(ctx, run, types.Failure{Company: "Globex", Step: "analyze", Error: "model unavailable"}, ""))

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, &buf, Query{}))

	var recs []Record
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "Globex", recs[0].Company)
	assert.Equal(t, StatusFailed, recs[0].Status)
	assert.Equal(t, "contract_name: MSA", findLine(buf.String(), "contract_name"))
}

func findLine(s, prefix string) string {
	for _, line := range bytes.Split([]byte(s), []byte("\n")) {
		trimmed := string(bytes.TrimSpace(line))
		if len(trimmed) >= len(prefix) && trimmed[:len(prefix)] == prefix {
			return trimmed
		}
	}
	return ""
}
