package replay

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/yourorg/authflow/internal/flow"
	"github.com/yourorg/authflow/pkg/types"
)

// Step action names recorded in the replay trace.
const (
	ActionGet          = "GET"
	ActionSubmitForm   = "SUBMIT_FORM"
	ActionSAMLDecode   = "SAML_DECODE"
	ActionReplayXHR    = "REPLAY_XHR"
	ActionReplayFailed = "REPLAY_XHR_FAILED"
	ActionError        = "ERROR"
)

const (
	defaultUserAgent     = "authflow-har-replay/1.0"
	defaultTimeout       = 30 * time.Second
	defaultSnippetLimit  = 800
	defaultDecodedLimit  = 2000
	defaultMaxFallback   = 10
	samlTokenCookieName  = "samlToken"
	accessTokenJSONField = "access_token"
)

// Engine drives a live HTTP client through a candidate flow. Each Run
// builds its own client and cookie jar; nothing is shared between
// invocations. Steps depend on the cookies left by previous steps, so
// execution is strictly sequential.
type Engine struct {
	Client             *http.Client
	UserAgent          string
	Timeout            time.Duration
	InsecureTLS        bool
	Credentials        Credentials
	FieldRules         []FieldRule
	SnippetLimit       int
	DecodedLimit       int
	MaxFallbackReplays int
	Logger             *slog.Logger
}

type session struct {
	client  *http.Client
	ua      string
	cookies map[string]string
}

// Run replays the candidate flow and returns a best-effort trace. It
// never returns an error: failures become ERROR steps and the result
// is always finalized with a cookie snapshot and token surfacing.
func (e *Engine) Run(f flow.CandidateFlow, startURL string) *types.ReplayResult {
	sess := e.newSession()
	result := &types.ReplayResult{Steps: []types.ReplayStep{}}

	if startURL == "" && len(f.Steps) > 0 {
		startURL = f.Steps[0].URL
	}

	if startURL != "" {
		e.replay(sess, f, startURL, result)
	}

	e.finalize(sess, result)
	return result
}

func (e *Engine) replay(sess *session, f flow.CandidateFlow, startURL string, result *types.ReplayResult) {
	status, finalURL, body, err := sess.do(http.MethodGet, startURL, nil)
	if err != nil {
		e.logError("initial request failed", startURL, err)
		result.Steps = append(result.Steps, types.ReplayStep{Action: ActionError, URL: startURL, Error: err.Error()})
		return
	}
	result.Steps = append(result.Steps, types.ReplayStep{
		Action:         ActionGet,
		URL:            startURL,
		Status:         status,
		Cookies:        sess.snapshot(),
		ContentSnippet: truncate(body, e.snippetLimit()),
	})

	form, ok := FirstForm(body)
	if !ok {
		e.fallbackReplay(sess, f, result)
		return
	}

	status2, finalURL2, body2, err := e.submitForm(sess, finalURL, form)
	if err != nil {
		e.logError("form submission failed", finalURL, err)
		result.Steps = append(result.Steps, types.ReplayStep{Action: ActionError, URL: finalURL, Error: err.Error()})
		return
	}
	result.Steps = append(result.Steps, types.ReplayStep{
		Action:         ActionSubmitForm,
		URL:            finalURL2,
		Status:         status2,
		Cookies:        sess.snapshot(),
		ContentSnippet: truncate(body2, e.snippetLimit()),
	})

	if decoded, found := DecodeSAMLResponse(body2); found {
		result.Steps = append(result.Steps, types.ReplayStep{
			Action:  ActionSAMLDecode,
			Snippet: truncate(decoded, e.decodedLimit()),
		})
	}
}

// submitForm fills the form with credential substitution applied and
// submits it to the action URL resolved against the current page.
func (e *Engine) submitForm(sess *session, pageURL string, form *Form) (int, string, string, error) {
	actionURL, err := resolveURL(pageURL, form.Action)
	if err != nil {
		return 0, "", "", err
	}
	data := url.Values{}
	for _, field := range form.Fields {
		data.Set(field.Name, ApplyFieldRules(e.fieldRules(), e.Credentials, field.Name, field.Value))
	}
	method := http.MethodGet
	if form.Method == "post" {
		method = http.MethodPost
	}
	return sess.do(method, actionURL, data)
}

// fallbackReplay re-issues captured POST requests when the start page
// held no form (login done via XHR or script). It stops at the first
// replay that yields a decodable SAML artifact.
func (e *Engine) fallbackReplay(sess *session, f flow.CandidateFlow, result *types.ReplayResult) {
	limit := e.maxFallback()
	tried := 0
	for _, step := range f.Steps {
		if tried >= limit {
			break
		}
		if len(step.PostParams) == 0 {
			continue
		}
		tried++
		data := url.Values{}
		for _, p := range step.PostParams {
			if p.Name == "" {
				continue
			}
			data.Set(p.Name, ApplyFieldRules(e.fieldRules(), e.Credentials, p.Name, p.Value))
		}
		method := step.Method
		if method == "" {
			method = http.MethodGet
		}
		status, _, body, err := sess.do(method, step.URL, data)
		if err != nil {
			result.Steps = append(result.Steps, types.ReplayStep{Action: ActionReplayFailed, URL: step.URL, Error: err.Error()})
			continue
		}
		result.Steps = append(result.Steps, types.ReplayStep{
			Action:         ActionReplayXHR,
			URL:            step.URL,
			Status:         status,
			Cookies:        sess.snapshot(),
			ContentSnippet: truncate(body, e.snippetLimit()),
		})
		if decoded, found := DecodeSAMLResponse(body); found {
			result.Steps = append(result.Steps, types.ReplayStep{
				Action:  ActionSAMLDecode,
				Snippet: truncate(decoded, e.decodedLimit()),
			})
			break
		}
	}
}

// finalize snapshots session cookies and surfaces any discovered
// tokens. Both surfacing attempts are best-effort and never fail.
func (e *Engine) finalize(sess *session, result *types.ReplayResult) {
	result.FinalCookies = sess.snapshot()
	if token, ok := result.FinalCookies[samlTokenCookieName]; ok {
		result.FoundSAMLToken = token
	}
	if len(result.Steps) == 0 {
		return
	}
	last := result.Steps[len(result.Steps)-1]
	if last.ContentSnippet == "" {
		return
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(last.ContentSnippet), &payload); err != nil {
		return
	}
	if token, ok := payload[accessTokenJSONField].(string); ok {
		result.FoundAccessToken = token
	}
}

func (e *Engine) newSession() *session {
	client := e.Client
	if client == nil {
		jar, _ := cookiejar.New(nil)
		transport := http.DefaultTransport
		if e.InsecureTLS {
			transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		}
		timeout := e.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Jar: jar, Timeout: timeout, Transport: transport}
	}
	if client.Jar == nil {
		jar, _ := cookiejar.New(nil)
		client.Jar = jar
	}
	ua := e.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &session{client: client, ua: ua, cookies: map[string]string{}}
}

// do issues one request, following redirects through the client, and
// returns the status, final URL and body. Cookies visible at the final
// URL are merged into the session snapshot.
func (s *session) do(method, rawURL string, data url.Values) (int, string, string, error) {
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequest(http.MethodPost, rawURL, strings.NewReader(data.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		target := rawURL
		if len(data) > 0 {
			sep := "?"
			if strings.Contains(rawURL, "?") {
				sep = "&"
			}
			target = rawURL + sep + data.Encode()
		}
		req, err = http.NewRequest(method, target, nil)
	}
	if err != nil {
		return 0, "", "", err
	}
	req.Header.Set("User-Agent", s.ua)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Request.URL.String(), "", err
	}
	s.mergeCookies(resp.Request.URL)
	return resp.StatusCode, resp.Request.URL.String(), string(body), nil
}

func (s *session) mergeCookies(u *url.URL) {
	if s.client.Jar == nil || u == nil {
		return
	}
	for _, c := range s.client.Jar.Cookies(u) {
		s.cookies[c.Name] = c.Value
	}
}

func (s *session) snapshot() map[string]string {
	out := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		out[k] = v
	}
	return out
}

func resolveURL(base, ref string) (string, error) {
	if ref == "" {
		return base, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func (e *Engine) logError(msg, url string, err error) {
	if e.Logger != nil {
		e.Logger.Warn(msg, "url", url, "error", err)
	}
}

func (e *Engine) snippetLimit() int {
	if e.SnippetLimit > 0 {
		return e.SnippetLimit
	}
	return defaultSnippetLimit
}

func (e *Engine) decodedLimit() int {
	if e.DecodedLimit > 0 {
		return e.DecodedLimit
	}
	return defaultDecodedLimit
}

func (e *Engine) maxFallback() int {
	if e.MaxFallbackReplays > 0 {
		return e.MaxFallbackReplays
	}
	return defaultMaxFallback
}

func (e *Engine) fieldRules() []FieldRule {
	if len(e.FieldRules) > 0 {
		return e.FieldRules
	}
	return DefaultFieldRules
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
