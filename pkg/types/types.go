package types

import "time"

// Session records one imported capture session.
type Session struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Scenario      string    `json:"scenario"`
	Host          string    `json:"host"`
	ExchangeCount int       `json:"exchange_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Status        string    `json:"status"`
}

// PostParam is one form/body parameter in capture order.
type PostParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CapturedExchange is one request/response pair from the archive.
// IsAuthLike and Tags are filled by the classifier; everything else is
// set once at load time.
type CapturedExchange struct {
	ID              int64             `json:"id,omitempty"`
	SessionID       string            `json:"session_id,omitempty"`
	Seq             int               `json:"seq"`
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Status          int               `json:"status"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	PostParams      []PostParam       `json:"post_params,omitempty"`
	PostMimeType    string            `json:"post_mime_type,omitempty"`
	SetCookie       string            `json:"set_cookie,omitempty"`
	// Time is the entry's capture-time field, preserved verbatim.
	// Nil when the archive omits it.
	Time       *float64 `json:"time,omitempty"`
	IsAuthLike bool     `json:"is_auth_like"`
	Tags       []string `json:"tags,omitempty"`
}

// ReplayStep is one action taken by the replay engine, appended in
// chronological order and never mutated afterwards.
type ReplayStep struct {
	Action         string            `json:"action"`
	URL            string            `json:"url,omitempty"`
	Status         int               `json:"status,omitempty"`
	Cookies        map[string]string `json:"cookies,omitempty"`
	ContentSnippet string            `json:"content_snippet,omitempty"`
	Snippet        string            `json:"snippet,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// ReplayResult is the outcome of one replay invocation.
type ReplayResult struct {
	Steps            []ReplayStep      `json:"steps"`
	FinalCookies     map[string]string `json:"final_cookies"`
	FoundSAMLToken   string            `json:"found_samlToken,omitempty"`
	FoundAccessToken string            `json:"found_access_token,omitempty"`
}

// FlowStepSample is the bounded per-step view included in reports.
type FlowStepSample struct {
	URL        string `json:"url"`
	Method     string `json:"method"`
	Status     int    `json:"status"`
	IsAuthLike bool   `json:"is_auth_like"`
}

// FlowReport is the final write-once aggregate for one pipeline run.
type FlowReport struct {
	RunID               string           `json:"run_id"`
	HARPath             string           `json:"har_path"`
	EntryCount          int              `json:"entry_count"`
	CandidateFlowLength int              `json:"candidate_flow_length"`
	FlowStrategy        string           `json:"flow_strategy"`
	FlowStepsSample     []FlowStepSample `json:"flow_steps_sample"`
	DiagramASCII        string           `json:"diagram_ascii"`
	ReplayReport        *ReplayResult    `json:"replay_report,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}
