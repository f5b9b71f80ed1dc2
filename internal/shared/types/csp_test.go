package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOuterPolicyDefault(t *testing.T) {
	policy := (&CSPDomains{}).OuterPolicy()

	assert.Contains(t, policy, "default-src 'none'")
	assert.Contains(t, policy, "script-src 'self' 'unsafe-inline'; ")
	assert.Contains(t, policy, "connect-src 'self'; ")
	assert.Contains(t, policy, "img-src 'self' data: blob:; ")
	assert.Contains(t, policy, "frame-src 'self'; ")
	assert.Contains(t, policy, "object-src 'none'")
	assert.True(t, strings.HasSuffix(policy, "base-uri 'self'"))
}

func TestOuterPolicyNilReceiver(t *testing.T) {
	var c *CSPDomains
	assert.Equal(t, (&CSPDomains{}).OuterPolicy(), c.OuterPolicy())
}

func TestOuterPolicyConnectDomains(t *testing.T) {
	c := &CSPDomains{ConnectDomains: []string{"https://api.example.com", "wss://stream.example.com"}}
	policy := c.OuterPolicy()

	assert.Contains(t, policy, "connect-src 'self' https://api.example.com wss://stream.example.com")
	// connect domains must not leak into other directives
	assert.Contains(t, policy, "img-src 'self' data: blob:; ")
	assert.Contains(t, policy, "script-src 'self' 'unsafe-inline'; ")
}

func TestOuterPolicyResourceDomains(t *testing.T) {
	c := &CSPDomains{ResourceDomains: []string{"https://cdn.example.com"}}
	policy := c.OuterPolicy()

	assert.Contains(t, policy, "script-src 'self' 'unsafe-inline' https://cdn.example.com")
	assert.Contains(t, policy, "style-src 'self' 'unsafe-inline' https://cdn.example.com")
	assert.Contains(t, policy, "img-src 'self' data: blob: https://cdn.example.com")
	assert.Contains(t, policy, "font-src 'self' https://cdn.example.com")
	assert.Contains(t, policy, "media-src 'self' data: blob: https://cdn.example.com")
	// resource domains grant loading, not connecting or framing
	assert.Contains(t, policy, "connect-src 'self'; ")
	assert.Contains(t, policy, "frame-src 'self'; ")
}

func TestOuterPolicyScriptDomains(t *testing.T) {
	c := &CSPDomains{ScriptDomains: []string{"https://scripts.example.com"}}
	policy := c.OuterPolicy()

	assert.Contains(t, policy, "script-src 'self' 'unsafe-inline' https://scripts.example.com")
	assert.Contains(t, policy, "script-src-elem 'self' 'unsafe-inline' https://scripts.example.com")
	assert.Contains(t, policy, "style-src 'self' 'unsafe-inline'; ")
}

func TestOuterPolicyFrameAndBaseURI(t *testing.T) {
	c := &CSPDomains{
		FrameDomains:   []string{"https://embed.example.com"},
		BaseURIDomains: []string{"https://base.example.com"},
	}
	policy := c.OuterPolicy()

	assert.Contains(t, policy, "frame-src 'self' https://embed.example.com")
	assert.True(t, strings.HasSuffix(policy, "base-uri 'self' https://base.example.com"))
}

func TestOuterPolicyCombined(t *testing.T) {
	c := &CSPDomains{
		ConnectDomains:  []string{"https://api.example.com"},
		ResourceDomains: []string{"https://cdn.example.com"},
		ScriptDomains:   []string{"https://scripts.example.com"},
	}
	policy := c.OuterPolicy()

	// resource domains precede script domains in the script directives
	assert.Contains(t, policy, "script-src 'self' 'unsafe-inline' https://cdn.example.com https://scripts.example.com")
	assert.Contains(t, policy, "connect-src 'self' https://api.example.com")
}

func TestParseDomainList(t *testing.T) {
	assert.Nil(t, ParseDomainList(""))
	assert.Equal(t, []string{"a.com"}, ParseDomainList("a.com"))
	assert.Equal(t, []string{"a.com", "b.com"}, ParseDomainList("a.com,b.com"))
	assert.Equal(t, []string{"a.com", "b.com"}, ParseDomainList(" a.com , b.com "))
	assert.Equal(t, []string{"a.com"}, ParseDomainList("a.com,,"))
	assert.Empty(t, ParseDomainList(" , "))
}

func TestJoinDomainList(t *testing.T) {
	assert.Equal(t, "", JoinDomainList(nil))
	assert.Equal(t, "api.example.com", JoinDomainList([]string{"api.example.com"}))
	assert.Equal(t, "a.com,b.com", JoinDomainList([]string{"a.com", "b.com"}))
}

func TestCSPDomainsEmpty(t *testing.T) {
	var c *CSPDomains
	assert.True(t, c.Empty())
	assert.True(t, (&CSPDomains{}).Empty())
	assert.False(t, (&CSPDomains{ConnectDomains: []string{"a.com"}}).Empty())
	assert.False(t, (&CSPDomains{ScriptDomains: []string{"s.com"}}).Empty())
}
