package flow

import (
	"sort"

	"github.com/yourorg/authflow/pkg/types"
)

// Strategy names how the candidate flow was selected.
type Strategy string

const (
	// StrategyTagged selects the exchanges the classifier marked
	// auth-like.
	StrategyTagged Strategy = "tagged"
	// StrategyPrefix falls back to a bounded prefix of the whole
	// archive when nothing was tagged.
	StrategyPrefix Strategy = "prefix"
)

// DefaultPrefixCap bounds the fallback prefix.
const DefaultPrefixCap = 50

// CandidateFlow is an ordered view over classified exchanges.
type CandidateFlow struct {
	Strategy Strategy
	Steps    []types.CapturedExchange
}

// Build selects the candidate authentication flow from classified
// exchanges. Tagged exchanges win; with none tagged, the first
// prefixCap exchanges are kept in original order. The selection is
// then sorted by capture time ascending, with a missing time treated
// as zero. Entries without a time therefore sort to the front; the
// sort is stable so their relative order is preserved.
func Build(exchanges []types.CapturedExchange, prefixCap int) CandidateFlow {
	if prefixCap <= 0 {
		prefixCap = DefaultPrefixCap
	}

	selected := make([]types.CapturedExchange, 0, len(exchanges))
	for _, ex := range exchanges {
		if ex.IsAuthLike {
			selected = append(selected, ex)
		}
	}
	strategy := StrategyTagged
	if len(selected) == 0 {
		strategy = StrategyPrefix
		n := len(exchanges)
		if n > prefixCap {
			n = prefixCap
		}
		selected = append(selected, exchanges[:n]...)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return timeOrZero(selected[i].Time) < timeOrZero(selected[j].Time)
	})
	return CandidateFlow{Strategy: strategy, Steps: selected}
}

func timeOrZero(t *float64) float64 {
	if t == nil {
		return 0
	}
	return *t
}
