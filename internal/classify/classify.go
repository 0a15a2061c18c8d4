package classify

import (
	"strings"

	"github.com/yourorg/authflow/pkg/types"
)

// Tag names attached to exchanges for diagram annotation.
const (
	TagSAMLRequest  = "SAMLRequest"
	TagSAMLResponse = "SAMLResponse"
	TagRelayState   = "RelayState"
	TagLoginForm    = "LOGIN_FORM"
)

// DefaultURLKeywords are matched as case-insensitive substrings of the
// request URL.
var DefaultURLKeywords = []string{"login", "auth", "sso", "saml", "oauth", "token", "authorize", "acs", "idp"}

// DefaultParamNames are matched case-insensitively against POST
// parameter names.
var DefaultParamNames = []string{"samlrequest", "samlresponse", "relaystate"}

// Classifier tags exchanges that look authentication-related. The
// heuristics are best-effort: false positives and negatives are
// expected, and missing fields never cause an error.
type Classifier struct {
	URLKeywords []string
	ParamNames  []string
}

// New returns a classifier with the default keyword sets.
func New() *Classifier {
	return &Classifier{
		URLKeywords: DefaultURLKeywords,
		ParamNames:  DefaultParamNames,
	}
}

// Classify reports whether the exchange is auth-like and which tags
// apply. It is deterministic and idempotent.
func (c *Classifier) Classify(ex types.CapturedExchange) (bool, []string) {
	authLike := false
	var tags []string

	lowerURL := strings.ToLower(ex.URL)
	for _, kw := range c.URLKeywords {
		if strings.Contains(lowerURL, kw) {
			authLike = true
			break
		}
	}
	if strings.Contains(lowerURL, "login") {
		tags = append(tags, TagLoginForm)
	}

	for _, p := range ex.PostParams {
		name := strings.ToLower(p.Name)
		for _, known := range c.ParamNames {
			if name != known {
				continue
			}
			authLike = true
			switch known {
			case "samlrequest":
				tags = appendUnique(tags, TagSAMLRequest)
			case "samlresponse":
				tags = appendUnique(tags, TagSAMLResponse)
			case "relaystate":
				tags = appendUnique(tags, TagRelayState)
			}
		}
	}
	return authLike, tags
}

// Apply annotates every exchange in place and returns the slice.
func (c *Classifier) Apply(exchanges []types.CapturedExchange) []types.CapturedExchange {
	for i := range exchanges {
		authLike, tags := c.Classify(exchanges[i])
		exchanges[i].IsAuthLike = authLike
		exchanges[i].Tags = tags
	}
	return exchanges
}

func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}
