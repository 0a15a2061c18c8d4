package pipeline

import (
	"time"

	"github.com/yourorg/authflow/internal/classify"
	"github.com/yourorg/authflow/internal/config"
	"github.com/yourorg/authflow/internal/diagram"
	"github.com/yourorg/authflow/internal/flow"
	"github.com/yourorg/authflow/internal/har"
	"github.com/yourorg/authflow/internal/replay"
	"github.com/yourorg/authflow/internal/report"
	"github.com/yourorg/authflow/pkg/types"
)

// ProgressFunc reports pipeline progress.
type ProgressFunc func(stage string)

// Analysis is the offline portion of a run: no network activity.
type Analysis struct {
	Exchanges []types.CapturedExchange
	Flow      flow.CandidateFlow
	Diagram   string
}

// Analyze loads a HAR file and runs classification, flow building and
// diagram rendering.
func Analyze(harPath string, cfg *config.Config, onProgress ProgressFunc) (*Analysis, error) {
	reportStage(onProgress, "loading archive")
	exchanges, err := har.Parse(harPath)
	if err != nil {
		return nil, err
	}
	return AnalyzeExchanges(exchanges, cfg, onProgress), nil
}

// AnalyzeExchanges runs the offline pipeline over already-loaded
// exchanges, e.g. a stored session.
func AnalyzeExchanges(exchanges []types.CapturedExchange, cfg *config.Config, onProgress ProgressFunc) *Analysis {
	reportStage(onProgress, "classifying exchanges")
	classifier := &classify.Classifier{
		URLKeywords: cfg.Classify.URLKeywords,
		ParamNames:  cfg.Classify.ParamNames,
	}
	exchanges = classifier.Apply(exchanges)

	reportStage(onProgress, "building candidate flow")
	f := flow.Build(exchanges, cfg.Flow.PrefixCap)

	reportStage(onProgress, "rendering diagram")
	return &Analysis{
		Exchanges: exchanges,
		Flow:      f,
		Diagram:   diagram.Render(f),
	}
}

// Replay drives the live replay over an analysis and assembles the
// final report. Replay failures surface as report content, never as an
// error.
func Replay(an *Analysis, harPath, startURL string, creds replay.Credentials, cfg *config.Config, onProgress ProgressFunc) *types.FlowReport {
	reportStage(onProgress, "replaying flow")
	engine := &replay.Engine{
		UserAgent:          cfg.Replay.UserAgent,
		Timeout:            time.Duration(cfg.Replay.TimeoutSeconds) * time.Second,
		InsecureTLS:        cfg.Replay.InsecureTLS,
		Credentials:        creds,
		MaxFallbackReplays: cfg.Replay.MaxFallbackReplays,
		SnippetLimit:       cfg.Replay.SnippetLimit,
		DecodedLimit:       cfg.Replay.DecodedLimit,
	}
	result := engine.Run(an.Flow, startURL)

	reportStage(onProgress, "assembling report")
	return report.Assemble(harPath, len(an.Exchanges), an.Flow, an.Diagram, result, cfg.Flow.SampleCap)
}

func reportStage(fn ProgressFunc, msg string) {
	if fn != nil {
		fn(msg)
	}
}
