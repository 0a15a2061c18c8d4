package replay

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yourorg/authflow/pkg/types"
)

// Form is one HTML form found in a response body, with its fields in
// document order.
type Form struct {
	Action string
	Method string
	Fields []types.PostParam
}

// Credentials are substituted into credential-like form fields.
type Credentials struct {
	Username string
	Password string
}

// FieldRule binds a set of field-name substrings to a credential
// value. Rules run in order over every field; the last matching rule
// wins when several apply.
type FieldRule struct {
	Name     string
	Keywords []string
	Value    func(Credentials) (string, bool)
}

// DefaultFieldRules reproduce the observed browser-login heuristics:
// any field whose name contains user/login/email takes the username,
// any field containing pass takes the password. The match is a plain
// substring, so names like "password_hint" are overwritten too.
var DefaultFieldRules = []FieldRule{
	{
		Name:     "username",
		Keywords: []string{"user", "login", "email"},
		Value: func(c Credentials) (string, bool) {
			return c.Username, c.Username != ""
		},
	},
	{
		Name:     "password",
		Keywords: []string{"pass"},
		Value: func(c Credentials) (string, bool) {
			return c.Password, c.Password != ""
		},
	},
}

// ApplyFieldRules returns the value a field should carry after
// credential substitution.
func ApplyFieldRules(rules []FieldRule, creds Credentials, name, value string) string {
	lower := strings.ToLower(name)
	out := value
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			if v, ok := rule.Value(creds); ok {
				out = v
			}
			break
		}
	}
	return out
}

// FirstForm extracts the first form from an HTML document. Inputs,
// textareas and selects without a name attribute are skipped.
func FirstForm(html string) (*Form, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}
	sel := doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, false
	}

	form := &Form{
		Action: sel.AttrOr("action", ""),
		Method: strings.ToLower(sel.AttrOr("method", "get")),
	}
	sel.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		form.Fields = append(form.Fields, types.PostParam{
			Name:  name,
			Value: s.AttrOr("value", ""),
		})
	})
	return form, true
}
