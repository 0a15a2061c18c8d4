package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/authflow/internal/flow"
	"github.com/yourorg/authflow/pkg/types"
)

// DefaultSampleCap bounds the number of flow steps included in the
// report sample.
const DefaultSampleCap = 30

// Assemble packages one pipeline run into a FlowReport. The flow step
// sample carries url/method/status/is_auth_like only, never bodies.
func Assemble(harPath string, entryCount int, f flow.CandidateFlow, diagram string, replayResult *types.ReplayResult, sampleCap int) *types.FlowReport {
	if sampleCap <= 0 {
		sampleCap = DefaultSampleCap
	}
	n := len(f.Steps)
	if n > sampleCap {
		n = sampleCap
	}
	sample := make([]types.FlowStepSample, 0, n)
	for _, step := range f.Steps[:n] {
		sample = append(sample, types.FlowStepSample{
			URL:        step.URL,
			Method:     step.Method,
			Status:     step.Status,
			IsAuthLike: step.IsAuthLike,
		})
	}
	return &types.FlowReport{
		RunID:               uuid.NewString(),
		HARPath:             harPath,
		EntryCount:          entryCount,
		CandidateFlowLength: len(f.Steps),
		FlowStrategy:        string(f.Strategy),
		FlowStepsSample:     sample,
		DiagramASCII:        diagram,
		ReplayReport:        replayResult,
		CreatedAt:           time.Now().UTC(),
	}
}

// WriteJSON serializes the report to outPath. A serialization or write
// failure is fatal for the run and is returned to the caller.
func WriteJSON(rep *types.FlowReport, outPath string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
