package bridge

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
	"github.com/sammcj/goose/internal/shared/utils"
)

// transcriptPolicy strips all markup from guest-posted text before it
// reaches the chat transcript.
var transcriptPolicy = bluemonday.StrictPolicy()

// handleOpenLink opens a URL on the guest's behalf. Safe schemes open
// directly; every other scheme requires a confirmation that names it. A
// decline or an invalid URL is a structured error, never an exception.
func (b *Bridge) handleOpenLink(ctx context.Context, _ id.ChannelID, params map[string]interface{}) (interface{}, *Error) {
	raw, err := GetString(params, "url", true)
	if err != nil {
		return nil, errInvalidParams(err)
	}

	scheme, safe, err := apps.ClassifyLink(raw)
	if err != nil {
		return nil, errFailed("invalid link: %v", err)
	}
	if b.deps.Opener == nil {
		return nil, errFailed("no link opener is wired")
	}

	if !safe && !b.trustedLink(raw) {
		if b.deps.Confirmer == nil {
			return nil, errFailed("cannot confirm %s link: no confirmation dialog available", scheme)
		}
		ok, err := b.deps.Confirmer.Confirm(ctx,
			"Open external link",
			fmt.Sprintf("The %s app wants to open a %q link:\n\n%s", b.deps.ExtensionName, scheme, raw),
		)
		if err != nil {
			return nil, errFailed("confirmation failed: %v", err)
		}
		if !ok {
			return nil, errFailed("user declined to open %s link", scheme)
		}
	}

	if err := b.deps.Opener.OpenExternal(raw); err != nil {
		return nil, errFailed("failed to open link: %v", err)
	}

	b.logger.Info("opened external link",
		zap.String("scheme", scheme),
		zap.String("url", utils.TruncateString(raw, 256)))
	return map[string]interface{}{}, nil
}

// trustedLink reports whether a URL matches a host-configured auto-approve
// pattern.
func (b *Bridge) trustedLink(url string) bool {
	for _, pattern := range b.deps.TrustedLinkPatterns {
		if ok, err := doublestar.Match(pattern, url); err == nil && ok {
			return true
		}
	}
	return false
}

// handleMessage appends guest content to the chat transcript and signals a
// scroll to bottom. The content must carry at least one text block.
func (b *Bridge) handleMessage(_ context.Context, _ id.ChannelID, params map[string]interface{}) (interface{}, *Error) {
	if b.deps.Transcript == nil {
		return nil, errFailed("no transcript handler is wired")
	}

	rawBlocks := GetSlice(params, "content")
	if rawBlocks == nil {
		return nil, errInvalidParams(fmt.Errorf("missing required parameter: content"))
	}

	blocks, err := parseContentBlocks(rawBlocks)
	if err != nil {
		return nil, errInvalidParams(err)
	}

	text, ok := types.FirstText(blocks)
	if !ok || text == "" {
		return nil, errFailed("message content requires a text block")
	}
	if len(text) > utils.MaxMessageSize {
		return nil, errFailed("message exceeds %d bytes", utils.MaxMessageSize)
	}

	// Sanitize every text block before it enters the transcript.
	for i := range blocks {
		if blocks[i].Type == "text" {
			blocks[i].Text = transcriptPolicy.Sanitize(blocks[i].Text)
		}
	}

	var sessionID id.SessionID
	if b.deps.Session != nil {
		sessionID = b.deps.Session.ID
	}
	if err := b.deps.Transcript.AppendMessage(sessionID, blocks); err != nil {
		return nil, errFailed("failed to append message: %v", err)
	}
	if b.deps.Scroll != nil {
		b.deps.Scroll.ScrollToBottom(sessionID)
	}
	return map[string]interface{}{}, nil
}

func parseContentBlocks(raw []interface{}) ([]types.ContentBlock, error) {
	blocks := make([]types.ContentBlock, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("content entries must be objects")
		}
		blockType, err := GetString(m, "type", true)
		if err != nil {
			return nil, err
		}
		text, _ := GetString(m, "text", false)
		data, _ := GetString(m, "data", false)
		mime, _ := GetString(m, "mimeType", false)
		blocks = append(blocks, types.ContentBlock{
			Type:     blockType,
			Text:     text,
			Data:     data,
			MimeType: mime,
		})
	}
	return blocks, nil
}

// handleCallTool invokes a tool through the session collaborator. The tool
// name is prefixed with the owning extension before it leaves the host, so
// a guest can only ever reach its own extension's tools.
func (b *Bridge) handleCallTool(ctx context.Context, _ id.ChannelID, params map[string]interface{}) (interface{}, *Error) {
	if !b.deps.Session.Active() {
		return nil, errFailed("no active session")
	}
	if b.deps.Tools == nil {
		return nil, errFailed("tool invocation is not available")
	}

	name, err := GetString(params, "name", true)
	if err != nil {
		return nil, errInvalidParams(err)
	}
	if err := utils.ValidateToolName(name); err != nil {
		return nil, errInvalidParams(err)
	}
	args := GetMap(params, "arguments")

	prefixed := b.deps.ExtensionName + "__" + name

	ctx, cancel := b.rpcContext(ctx)
	defer cancel()

	result, err := b.deps.Tools.CallTool(ctx, b.deps.Session.ID, prefixed, args)
	if err != nil {
		return nil, errFailed("tool call failed: %v", err)
	}
	if result == nil {
		result = &types.ToolResult{Content: []types.ContentBlock{}}
	}
	if result.Content == nil {
		result.Content = []types.ContentBlock{}
	}
	return result, nil
}

// handleReadResource reads a resource through the session collaborator. An
// empty upstream response yields an empty contents array, not an error.
func (b *Bridge) handleReadResource(ctx context.Context, _ id.ChannelID, params map[string]interface{}) (interface{}, *Error) {
	if !b.deps.Session.Active() {
		return nil, errFailed("no active session")
	}
	if b.deps.Resources == nil {
		return nil, errFailed("resource reads are not available")
	}

	uri, err := GetString(params, "uri", true)
	if err != nil {
		return nil, errInvalidParams(err)
	}
	if err := utils.ValidateURI(uri); err != nil {
		return nil, errInvalidParams(err)
	}

	ctx, cancel := b.rpcContext(ctx)
	defer cancel()

	contents, err := b.deps.Resources.ReadResource(ctx, b.deps.Session.ID, uri)
	if err != nil {
		return nil, errFailed("resource read failed: %v", err)
	}
	if contents == nil {
		contents = []types.ResourceContents{}
	}
	for i := range contents {
		if contents[i].MimeType == "" && contents[i].Blob != "" {
			contents[i].MimeType = sniffBlobMime(contents[i].Blob)
		}
	}
	return map[string]interface{}{"contents": contents}, nil
}

// sniffBlobMime detects a MIME type from base64 blob contents when the
// upstream omitted one.
func sniffBlobMime(blob string) string {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || len(data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(data).String()
}

// handleLogging relays a guest log notification to the host logger.
// Best-effort: it never blocks and never fails the guest.
func (b *Bridge) handleLogging(_ context.Context, _ id.ChannelID, params map[string]interface{}) (interface{}, *Error) {
	level, _ := GetString(params, "level", false)
	data := params["data"]

	fields := []zap.Field{
		zap.String("extension", b.deps.ExtensionName),
		zap.Any("data", data),
	}
	switch level {
	case "error", "critical", "alert", "emergency":
		b.logger.Error("guest log", fields...)
	case "warning":
		b.logger.Warn("guest log", fields...)
	case "debug":
		b.logger.Debug("guest log", fields...)
	default:
		b.logger.Info("guest log", fields...)
	}
	return map[string]interface{}{}, nil
}

// handleSizeChanged forwards a guest-reported content height to the display
// controller, which applies it only while inline.
func (b *Bridge) handleSizeChanged(_ context.Context, source id.ChannelID, params map[string]interface{}) (interface{}, *Error) {
	height, err := GetNumber(params, "height", true)
	if err != nil {
		return nil, errInvalidParams(err)
	}
	if height < 0 {
		return nil, errInvalidParams(fmt.Errorf("height must be non-negative"))
	}

	applied := false
	if b.deps.Display != nil {
		applied = b.deps.Display.SizeChanged(source, int(height))
	}
	return map[string]interface{}{"applied": applied}, nil
}
