package diagram

import (
	"strings"
	"testing"

	"github.com/yourorg/authflow/internal/flow"
	"github.com/yourorg/authflow/pkg/types"
)

func TestRenderHostOrdering(t *testing.T) {
	f := flow.CandidateFlow{Steps: []types.CapturedExchange{
		{URL: "https://a.com/start", Status: 302},
		{URL: "https://b.com/sso", Status: 200},
		{URL: "https://a.com/acs", Status: 200},
		{URL: "https://c.com/mfa", Status: 200},
	}}
	out := Render(f)
	if !strings.Contains(out, "[Browser] --> [SP: a.com]") {
		t.Fatalf("missing SP line:\n%s", out)
	}
	if strings.Count(out, "[SP: a.com] --302/POST--> [IdP: b.com]") != 1 {
		t.Fatalf("expected exactly one b.com IdP hop:\n%s", out)
	}
	if strings.Count(out, "[SP: a.com] --302/POST--> [IdP: c.com]") != 1 {
		t.Fatalf("expected exactly one c.com IdP hop:\n%s", out)
	}
	// First-seen order: b.com hop before c.com hop.
	if strings.Index(out, "IdP: b.com") > strings.Index(out, "IdP: c.com") {
		t.Fatalf("IdP hops out of first-seen order:\n%s", out)
	}
	if !strings.Contains(out, "[IdP] --SAMLResponse/Redirect--> [SP]") {
		t.Fatalf("missing closing line:\n%s", out)
	}
}

func TestRenderSingleHost(t *testing.T) {
	f := flow.CandidateFlow{Steps: []types.CapturedExchange{
		{URL: "https://idp.example/samlv2/sso", Status: 200, Tags: []string{"SAMLRequest"}},
	}}
	out := Render(f)
	if !strings.Contains(out, "[Browser] --> [SP: idp.example]") {
		t.Fatalf("missing SP line:\n%s", out)
	}
	if strings.Contains(out, "--302/POST-->") {
		t.Fatalf("single host must not render IdP hops:\n%s", out)
	}
	if !strings.Contains(out, "SAMLRequest") {
		t.Fatalf("detail line should carry tags:\n%s", out)
	}
}

func TestRenderNoHosts(t *testing.T) {
	out := Render(flow.CandidateFlow{})
	if !strings.Contains(out, "(no hosts detected)") {
		t.Fatalf("missing placeholder:\n%s", out)
	}
}

func TestRenderTruncatesLongURL(t *testing.T) {
	long := "https://sp.corp/" + strings.Repeat("x", 300)
	f := flow.CandidateFlow{Steps: []types.CapturedExchange{{URL: long, Status: 200}}}
	out := Render(f)
	if strings.Contains(out, long) {
		t.Fatalf("detail URL was not truncated")
	}
	if !strings.Contains(out, long[:140]) {
		t.Fatalf("truncated URL prefix missing")
	}
}
