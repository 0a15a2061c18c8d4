package filter

import (
	"net/url"
	"path"
	"strings"

	"github.com/yourorg/authflow/internal/config"
	"github.com/yourorg/authflow/pkg/types"
)

// FilterConfig is an alias of config.FilterConfig.
type FilterConfig = config.FilterConfig

// Apply drops exchanges that cannot be part of an authentication flow:
// CORS preflights, static assets and ignored path prefixes. It is used
// on import only and never on the analysis pipeline itself, which must
// see the archive exactly as captured.
func Apply(exchanges []types.CapturedExchange, cfg FilterConfig) []types.CapturedExchange {
	filtered := make([]types.CapturedExchange, 0, len(exchanges))
	for _, ex := range exchanges {
		if strings.EqualFold(ex.Method, "OPTIONS") {
			continue
		}
		p := urlPath(ex.URL)
		if hasIgnoredExtension(p, cfg.IgnoreExtensions) {
			continue
		}
		if matchesContentType(ex.ResponseHeaders["content-type"], cfg.IgnoreContentTypes) {
			continue
		}
		if hasIgnoredPath(p, cfg.IgnorePaths) {
			continue
		}
		filtered = append(filtered, ex)
	}
	return filtered
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

func hasIgnoredExtension(p string, exts []string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(strings.TrimSpace(e)) == ext {
			return true
		}
	}
	return false
}

func hasIgnoredPath(p string, prefixes []string) bool {
	for _, pref := range prefixes {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		if strings.HasPrefix(p, pref) {
			return true
		}
	}
	return false
}

func matchesContentType(ct string, ignores []string) bool {
	if strings.TrimSpace(ct) == "" {
		return false
	}
	base := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	for _, p := range ignores {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/*") {
			prefix := strings.TrimSuffix(p, "*")
			if strings.HasPrefix(base, prefix) {
				return true
			}
			continue
		}
		if base == p {
			return true
		}
	}
	return false
}
