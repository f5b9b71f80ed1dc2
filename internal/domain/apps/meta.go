package apps

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/sammcj/goose/internal/shared/types"
	"github.com/sammcj/goose/internal/shared/utils"
)

// Resource metadata may arrive out-of-band from the extension, or embedded in
// the document head when the extension ships a plain HTML file:
//
//	<meta name="goose-app-connect-domains" content="https://api.example.com">
//	<meta name="goose-app-prefers-border" content="true">
const (
	metaConnectDomains  = "goose-app-connect-domains"
	metaResourceDomains = "goose-app-resource-domains"
	metaFrameDomains    = "goose-app-frame-domains"
	metaBaseURIDomains  = "goose-app-base-uri-domains"
	metaScriptDomains   = "goose-app-script-domains"
	metaPermissions     = "goose-app-permissions"
	metaPrefersBorder   = "goose-app-prefers-border"
)

// DetectCharset detects and returns charset from HTML bytes
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// DecodeHTML normalizes fetched bytes to a UTF-8 string using charset
// detection. Oversized documents are rejected before decoding.
func DecodeHTML(data []byte) (string, error) {
	if len(data) > utils.MaxResourceSize {
		return "", fmt.Errorf("resource exceeds maximum size of %d bytes", utils.MaxResourceSize)
	}

	detected := DetectCharset(data)
	if detected == "utf-8" {
		return string(data), nil
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(data), detected)
	if err != nil {
		// Fallback to the raw bytes
		return string(data), nil
	}

	decoded, err := io.ReadAll(utf8Reader)
	if err != nil {
		return string(data), nil
	}
	return string(decoded), nil
}

// ExtractMeta parses the document head for embedded resource metadata.
// Returns nil when the document declares nothing.
func ExtractMeta(html string) *types.ResourceMeta {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	read := func(name string) string {
		content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).Attr("content")
		return strings.TrimSpace(content)
	}

	csp := &types.CSPDomains{
		ConnectDomains:  types.ParseDomainList(read(metaConnectDomains)),
		ResourceDomains: types.ParseDomainList(read(metaResourceDomains)),
		FrameDomains:    types.ParseDomainList(read(metaFrameDomains)),
		BaseURIDomains:  types.ParseDomainList(read(metaBaseURIDomains)),
		ScriptDomains:   types.ParseDomainList(read(metaScriptDomains)),
	}

	meta := &types.ResourceMeta{}
	found := false

	if !csp.Empty() {
		meta.CSP = csp
		found = true
	}
	if perms := read(metaPermissions); perms != "" {
		meta.Permissions = &perms
		found = true
	}
	if border := read(metaPrefersBorder); border != "" {
		meta.PrefersBorder = border == "true" || border == "1"
		found = true
	}

	if !found {
		return nil
	}
	return meta
}
