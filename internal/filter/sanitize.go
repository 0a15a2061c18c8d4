package filter

import (
	"strings"

	"github.com/yourorg/authflow/internal/config"
	"github.com/yourorg/authflow/pkg/types"
)

// SanitizeConfig is an alias of config.SanitizeConfig.
type SanitizeConfig = config.SanitizeConfig

// Sanitize redacts sensitive headers in exchanges before they are
// persisted. Captured auth headers and cookies are the whole point of
// the replay report, so this applies to stored sessions only.
func Sanitize(exchanges []types.CapturedExchange, cfg SanitizeConfig) []types.CapturedExchange {
	headerSet := toLowerSet(cfg.Headers)
	out := make([]types.CapturedExchange, len(exchanges))
	for i, ex := range exchanges {
		out[i] = ex
		out[i].RequestHeaders = sanitizeHeaderMap(ex.RequestHeaders, headerSet, cfg.Replacement)
		out[i].ResponseHeaders = sanitizeHeaderMap(ex.ResponseHeaders, headerSet, cfg.Replacement)
		if ex.SetCookie != "" {
			if _, ok := headerSet["set-cookie"]; ok {
				out[i].SetCookie = cfg.Replacement
			}
		}
	}
	return out
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func sanitizeHeaderMap(in map[string]string, set map[string]struct{}, replacement string) map[string]string {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if _, ok := set[strings.ToLower(k)]; ok {
			out[k] = replacement
			continue
		}
		out[k] = v
	}
	return out
}
