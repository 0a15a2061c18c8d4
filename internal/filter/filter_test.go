package filter

import (
	"testing"

	"github.com/yourorg/authflow/internal/config"
	"github.com/yourorg/authflow/pkg/types"
)

func defaultFilterConfig() FilterConfig {
	cfg := &config.Config{}
	cfg.SetDefaults()
	return cfg.Filter
}

func TestApplyDropsPreflights(t *testing.T) {
	exchanges := []types.CapturedExchange{
		{URL: "https://sp.corp/api/login", Method: "OPTIONS", Status: 204},
		{URL: "https://sp.corp/api/login", Method: "POST", Status: 200},
	}
	out := Apply(exchanges, defaultFilterConfig())
	if len(out) != 1 || out[0].Method != "POST" {
		t.Fatalf("expected only the POST to survive, got %+v", out)
	}
}

func TestApplyDropsStaticAssets(t *testing.T) {
	exchanges := []types.CapturedExchange{
		{URL: "https://cdn.corp/app.js?v=3", Method: "GET"},
		{URL: "https://cdn.corp/logo.png", Method: "GET"},
		{URL: "https://sp.corp/login", Method: "GET"},
	}
	out := Apply(exchanges, defaultFilterConfig())
	if len(out) != 1 || out[0].URL != "https://sp.corp/login" {
		t.Fatalf("expected assets dropped, got %+v", out)
	}
}

func TestApplyDropsByContentType(t *testing.T) {
	exchanges := []types.CapturedExchange{
		{URL: "https://sp.corp/resource", Method: "GET",
			ResponseHeaders: map[string]string{"content-type": "image/webp"}},
		{URL: "https://sp.corp/resource", Method: "GET",
			ResponseHeaders: map[string]string{"content-type": "text/css; charset=utf-8"}},
		{URL: "https://sp.corp/resource", Method: "GET",
			ResponseHeaders: map[string]string{"content-type": "text/html"}},
	}
	out := Apply(exchanges, defaultFilterConfig())
	if len(out) != 1 {
		t.Fatalf("expected image/* and text/css dropped, got %+v", out)
	}
}

func TestApplyDropsIgnoredPaths(t *testing.T) {
	exchanges := []types.CapturedExchange{
		{URL: "https://sp.corp/static/chunk", Method: "GET"},
		{URL: "https://sp.corp/favicon.ico", Method: "GET"},
		{URL: "https://sp.corp/saml/acs", Method: "POST"},
	}
	out := Apply(exchanges, defaultFilterConfig())
	if len(out) != 1 || out[0].URL != "https://sp.corp/saml/acs" {
		t.Fatalf("expected static paths dropped, got %+v", out)
	}
}

func TestApplyKeepsAuthTraffic(t *testing.T) {
	exchanges := []types.CapturedExchange{
		{URL: "https://idp.corp/sso/login", Method: "POST", Status: 200,
			PostParams: []types.PostParam{{Name: "SAMLResponse", Value: "..."}}},
	}
	out := Apply(exchanges, defaultFilterConfig())
	if len(out) != 1 {
		t.Fatalf("auth exchange must survive filtering")
	}
}

func TestSanitizeRedactsHeaders(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()

	exchanges := []types.CapturedExchange{{
		URL:             "https://sp.corp/login",
		RequestHeaders:  map[string]string{"authorization": "Bearer secret", "accept": "text/html"},
		ResponseHeaders: map[string]string{"set-cookie": "samlToken=abc", "content-type": "text/html"},
		SetCookie:       "samlToken=abc",
	}}
	out := Sanitize(exchanges, cfg.Sanitize)

	if out[0].RequestHeaders["authorization"] != "***REDACTED***" {
		t.Errorf("authorization not redacted: %q", out[0].RequestHeaders["authorization"])
	}
	if out[0].RequestHeaders["accept"] != "text/html" {
		t.Errorf("benign header modified: %q", out[0].RequestHeaders["accept"])
	}
	if out[0].ResponseHeaders["set-cookie"] != "***REDACTED***" {
		t.Errorf("set-cookie not redacted: %q", out[0].ResponseHeaders["set-cookie"])
	}
	if out[0].SetCookie != "***REDACTED***" {
		t.Errorf("SetCookie field not redacted: %q", out[0].SetCookie)
	}
	// Original slice stays untouched.
	if exchanges[0].RequestHeaders["authorization"] != "Bearer secret" {
		t.Error("sanitize mutated input")
	}
}

func TestSanitizeEmptyHeaders(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	out := Sanitize([]types.CapturedExchange{{URL: "https://sp.corp/"}}, cfg.Sanitize)
	if len(out) != 1 || out[0].URL != "https://sp.corp/" {
		t.Fatalf("unexpected output: %+v", out)
	}
}
