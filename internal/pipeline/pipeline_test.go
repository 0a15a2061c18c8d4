package pipeline

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/yourorg/authflow/internal/config"
	"github.com/yourorg/authflow/internal/flow"
	"github.com/yourorg/authflow/internal/replay"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return cfg
}

func TestAnalyzeSampleArchive(t *testing.T) {
	var stages []string
	an, err := Analyze(filepath.Join("..", "..", "testdata", "sample.har"), testConfig(), func(stage string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(an.Exchanges) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(an.Exchanges))
	}
	if an.Flow.Strategy != flow.StrategyTagged {
		t.Errorf("strategy = %s, want tagged", an.Flow.Strategy)
	}
	if len(an.Flow.Steps) != 1 {
		t.Errorf("expected 1 auth-like step, got %d", len(an.Flow.Steps))
	}
	if !strings.Contains(an.Diagram, "idp.corp") {
		t.Errorf("diagram missing origin host:\n%s", an.Diagram)
	}
	if len(stages) == 0 {
		t.Error("progress callback never invoked")
	}
}

func TestAnalyzePlainArchiveFallsBackToPrefix(t *testing.T) {
	an, err := Analyze(filepath.Join("..", "..", "testdata", "plain.har"), testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if an.Flow.Strategy != flow.StrategyPrefix {
		t.Errorf("strategy = %s, want prefix", an.Flow.Strategy)
	}
	if len(an.Flow.Steps) != 3 {
		t.Errorf("prefix flow should keep all 3 entries, got %d", len(an.Flow.Steps))
	}
}

func TestAnalyzeMalformedArchive(t *testing.T) {
	if _, err := Analyze(filepath.Join("..", "..", "testdata", "malformed.har"), testConfig(), nil); err == nil {
		t.Fatal("expected error for malformed archive")
	}
}

func TestReplayAssemblesReport(t *testing.T) {
	an, err := Analyze(filepath.Join("..", "..", "testdata", "sample.har"), testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// Unreachable start URL: the replay records an ERROR step but the
	// report still assembles.
	rep := Replay(an, "sample.har", "http://127.0.0.1:1/", replay.Credentials{}, testConfig(), nil)
	if rep == nil {
		t.Fatal("nil report")
	}
	if rep.HARPath != "sample.har" || rep.EntryCount != 3 {
		t.Errorf("unexpected report header: %+v", rep)
	}
	if rep.ReplayReport == nil || len(rep.ReplayReport.Steps) == 0 {
		t.Fatal("replay report missing steps")
	}
	if rep.ReplayReport.Steps[0].Action != "ERROR" {
		t.Errorf("first step action = %s, want ERROR", rep.ReplayReport.Steps[0].Action)
	}
	if rep.DiagramASCII == "" {
		t.Error("diagram missing from report")
	}
}
