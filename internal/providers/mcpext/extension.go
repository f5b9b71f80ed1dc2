package mcpext

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

// Extension is one connected MCP extension server.
type Extension struct {
	name   string
	cmd    *exec.Cmd
	conn   *mcpsdk.ClientSession
	logger *logging.Logger
}

// Spawn starts an MCP extension server subprocess and connects to it over
// stdio.
func Spawn(ctx context.Context, name, command string, args []string, logger *logging.Logger) (*Extension, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("mcpext")

	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "goose-host", Version: "1.0.0"}, nil)
	conn, err := client.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, fmt.Errorf("failed to connect to extension %q: %w", name, err)
	}

	logger.Info("extension connected", zap.String("extension", name))
	return &Extension{name: name, cmd: cmd, conn: conn, logger: logger}, nil
}

// Name returns the extension's configured name.
func (e *Extension) Name() string {
	return e.name
}

// Close disconnects and terminates the extension subprocess.
func (e *Extension) Close() error {
	if e.conn != nil {
		_ = e.conn.Close()
	}
	if e.cmd != nil && e.cmd.Process != nil {
		return e.cmd.Process.Kill()
	}
	return nil
}

// CallTool invokes a tool on the extension. The session ID is unused: the
// connection already scopes the call.
func (e *Extension) CallTool(ctx context.Context, _ id.SessionID, name string, args map[string]interface{}) (*types.ToolResult, error) {
	result, err := e.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("tool %q failed: %w", name, err)
	}

	out := &types.ToolResult{
		Content: convertContent(result.Content),
		IsError: result.IsError,
	}
	if structured, ok := result.StructuredContent.(map[string]interface{}); ok {
		out.StructuredContent = structured
	}
	return out, nil
}

// ReadResource reads a resource from the extension.
func (e *Extension) ReadResource(ctx context.Context, _ id.SessionID, uri string) ([]types.ResourceContents, error) {
	result, err := e.conn.ReadResource(ctx, &mcpsdk.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, fmt.Errorf("resource read %q failed: %w", uri, err)
	}

	contents := make([]types.ResourceContents, 0, len(result.Contents))
	for _, rc := range result.Contents {
		if rc == nil {
			continue
		}
		entry := types.ResourceContents{
			URI:      rc.URI,
			MimeType: rc.MIMEType,
			Text:     rc.Text,
		}
		if len(rc.Blob) > 0 {
			entry.Blob = base64.StdEncoding.EncodeToString(rc.Blob)
		}
		contents = append(contents, entry)
	}
	return contents, nil
}

// FetchResource fetches a UI resource for the app loader. The first text
// entry of the read is the document.
func (e *Extension) FetchResource(ctx context.Context, _, uri string) ([]byte, *types.ResourceMeta, error) {
	contents, err := e.ReadResource(ctx, "", uri)
	if err != nil {
		return nil, nil, err
	}
	for _, rc := range contents {
		if rc.Text != "" {
			return []byte(rc.Text), nil, nil
		}
	}
	return nil, nil, fmt.Errorf("resource %s has no text content", uri)
}

// convertContent flattens SDK content blocks to the wire shape.
func convertContent(blocks []mcpsdk.Content) []types.ContentBlock {
	out := make([]types.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		switch c := b.(type) {
		case *mcpsdk.TextContent:
			out = append(out, types.TextBlock(c.Text))
		case *mcpsdk.ImageContent:
			out = append(out, types.ContentBlock{
				Type:     "image",
				Data:     base64.StdEncoding.EncodeToString(c.Data),
				MimeType: c.MIMEType,
			})
		}
	}
	return out
}
