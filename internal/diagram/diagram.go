package diagram

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yourorg/authflow/internal/flow"
)

const maxDetailURLLen = 140

// Render derives a coarse Browser -> SP -> IdP topology from the
// distinct hostnames seen in the flow and renders it as plain text.
// The first distinct host is assumed to be the Service Provider and
// every later host an IdP hop. This is a best-effort visualization:
// multi-SP and proxied topologies collapse onto a single SP line.
func Render(f flow.CandidateFlow) string {
	var hosts []string
	seen := make(map[string]struct{})

	type detail struct {
		host   string
		status int
		tags   []string
		url    string
	}
	var details []detail

	for _, step := range f.Steps {
		u, err := url.Parse(step.URL)
		if err != nil {
			continue
		}
		host := u.Host
		if _, ok := seen[host]; !ok && host != "" {
			seen[host] = struct{}{}
			hosts = append(hosts, host)
		}
		details = append(details, detail{host: host, status: step.Status, tags: step.Tags, url: step.URL})
	}

	var b strings.Builder
	b.WriteString("ASCII auth chain diagram (simplified)\n\n")
	if len(hosts) > 0 {
		sp := hosts[0]
		fmt.Fprintf(&b, "[Browser] --> [SP: %s]\n", sp)
		for _, h := range hosts[1:] {
			fmt.Fprintf(&b, "[SP: %s] --302/POST--> [IdP: %s]\n", sp, h)
		}
		b.WriteString("[IdP] --SAMLResponse/Redirect--> [SP]\n")
	} else {
		b.WriteString("(no hosts detected)\n")
	}

	b.WriteString("\nDetailed steps:\n")
	for _, d := range details {
		fmt.Fprintf(&b, "- %s %d %s -> %s\n", d.host, d.status, strings.Join(d.tags, ","), truncate(d.url, maxDetailURLLen))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
