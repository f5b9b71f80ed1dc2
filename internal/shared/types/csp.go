package types

import "strings"

// CSPDomains holds the allow-listed domains a guest's content-security-policy
// may connect to, load resources from, frame, base to, or load scripts from.
// All lists are optional.
type CSPDomains struct {
	ConnectDomains  []string `json:"connectDomains,omitempty"`
	ResourceDomains []string `json:"resourceDomains,omitempty"`
	FrameDomains    []string `json:"frameDomains,omitempty"`
	BaseURIDomains  []string `json:"baseUriDomains,omitempty"`
	ScriptDomains   []string `json:"scriptDomains,omitempty"`
}

// ResourceMeta is the metadata attached to a fetched UI resource. Once CSP
// or permissions are known they are never silently discarded; they end up
// baked into the sandbox proxy URL.
type ResourceMeta struct {
	CSP           *CSPDomains `json:"csp,omitempty"`
	Permissions   *string     `json:"permissions,omitempty"`
	PrefersBorder bool        `json:"prefersBorder,omitempty"`
}

// ParseDomainList splits a comma-separated domain list, trimming whitespace
// and dropping empty entries.
func ParseDomainList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinDomainList renders a domain list as the comma-joined wire form
func JoinDomainList(domains []string) string {
	return strings.Join(domains, ",")
}

// OuterPolicy derives the sandbox frame's content-security-policy from the
// declared domains. The policy is a ceiling: the guest frame cannot exceed
// these permissions no matter what its own markup declares.
func (c *CSPDomains) OuterPolicy() string {
	var connect, resource, frame, baseURI, script []string
	if c != nil {
		connect = c.ConnectDomains
		resource = c.ResourceDomains
		frame = c.FrameDomains
		baseURI = c.BaseURIDomains
		script = c.ScriptDomains
	}

	resources := joinWithLeadingSpace(resource)
	scripts := joinWithLeadingSpace(script)
	connections := joinWithLeadingSpace(connect)
	baseURIs := joinWithLeadingSpace(baseURI)

	// frame-src needs 'self' so the proxy page can load the guest frame
	frameSrc := "frame-src 'self'"
	if len(frame) > 0 {
		frameSrc += " " + strings.Join(frame, " ")
	}

	directives := []string{
		"default-src 'none'",
		"script-src 'self' 'unsafe-inline'" + resources + scripts,
		"script-src-elem 'self' 'unsafe-inline'" + resources + scripts,
		"style-src 'self' 'unsafe-inline'" + resources,
		"style-src-elem 'self' 'unsafe-inline'" + resources,
		"connect-src 'self'" + connections,
		"img-src 'self' data: blob:" + resources,
		"font-src 'self'" + resources,
		"media-src 'self' data: blob:" + resources,
		frameSrc,
		"object-src 'none'",
		"base-uri 'self'" + baseURIs,
	}
	return strings.Join(directives, "; ")
}

// Empty reports whether no domain list carries any entry
func (c *CSPDomains) Empty() bool {
	if c == nil {
		return true
	}
	return len(c.ConnectDomains) == 0 && len(c.ResourceDomains) == 0 &&
		len(c.FrameDomains) == 0 && len(c.BaseURIDomains) == 0 && len(c.ScriptDomains) == 0
}

func joinWithLeadingSpace(domains []string) string {
	if len(domains) == 0 {
		return ""
	}
	return " " + strings.Join(domains, " ")
}
