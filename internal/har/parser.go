package har

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yourorg/authflow/pkg/types"
)

// ErrInvalidArchive marks input that is not a usable HAR document.
var ErrInvalidArchive = errors.New("invalid HAR archive")

type harFile struct {
	Log *struct {
		Entries []entry `json:"entries"`
	} `json:"log"`
}

type entry struct {
	Time    *float64 `json:"time"`
	Request struct {
		Method  string `json:"method"`
		URL     string `json:"url"`
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		PostData struct {
			MimeType string `json:"mimeType"`
			Params   []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"params"`
		} `json:"postData"`
	} `json:"request"`
	Response struct {
		Status  int `json:"status"`
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"response"`
}

// Parse reads a HAR file and normalizes every entry into a
// CapturedExchange, preserving original capture order. It is
// all-or-nothing: a malformed document yields no partial result.
func Parse(filePath string) ([]types.CapturedExchange, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var hf harFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if hf.Log == nil || hf.Log.Entries == nil {
		return nil, fmt.Errorf("%w: missing log.entries", ErrInvalidArchive)
	}

	exchanges := make([]types.CapturedExchange, 0, len(hf.Log.Entries))
	for i, e := range hf.Log.Entries {
		ex := types.CapturedExchange{
			Seq:             i + 1,
			URL:             e.Request.URL,
			Method:          e.Request.Method,
			Status:          e.Response.Status,
			RequestHeaders:  flattenHeaders(e.Request.Headers),
			ResponseHeaders: flattenHeaders(e.Response.Headers),
			PostMimeType:    e.Request.PostData.MimeType,
			Time:            e.Time,
		}
		for _, p := range e.Request.PostData.Params {
			ex.PostParams = append(ex.PostParams, types.PostParam{Name: p.Name, Value: p.Value})
		}
		if sc, ok := ex.ResponseHeaders["set-cookie"]; ok {
			ex.SetCookie = sc
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}

// flattenHeaders lowercases names and keeps the last value on
// duplicates, matching single-value header semantics.
func flattenHeaders(hdrs []struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}) map[string]string {
	out := make(map[string]string, len(hdrs))
	for _, h := range hdrs {
		out[strings.ToLower(h.Name)] = h.Value
	}
	return out
}
