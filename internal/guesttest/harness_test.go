package guesttest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/bridge"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

func TestScriptValueAndConsoleCapture(t *testing.T) {
	h, err := New(func(method string, params map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"echo": method}, nil
	})
	require.NoError(t, err)

	res, err := h.Run(context.Background(), `
		console.log("starting");
		var r = host.call("ping", {});
		console.warn("got", r.echo);
		r.echo;
	`)
	require.NoError(t, err)
	assert.Equal(t, "ping", res.Value)
	require.Len(t, res.Console, 2)
	assert.Equal(t, "starting", res.Console[0].Message)
	assert.Equal(t, "warn", res.Console[1].Level)
	assert.Equal(t, "got ping", res.Console[1].Message)
}

func TestDispatchErrorIsCatchable(t *testing.T) {
	h, err := New(func(method string, params map[string]interface{}) (interface{}, error) {
		return nil, errors.New("tool not available")
	})
	require.NoError(t, err)

	res, err := h.Run(context.Background(), `
		var caught = "";
		try {
			host.call("tools/call", {name: "x"});
		} catch (e) {
			caught = String(e);
		}
		caught;
	`)
	require.NoError(t, err)
	assert.Contains(t, res.Value.(string), "tool not available")
}

func TestDangerousGlobalsAreStripped(t *testing.T) {
	h, err := New(func(string, map[string]interface{}) (interface{}, error) { return nil, nil })
	require.NoError(t, err)

	res, err := h.Run(context.Background(), `typeof require + " " + typeof process;`)
	require.NoError(t, err)
	assert.Equal(t, "undefined undefined", res.Value)
}

func TestTimeoutInterruptsScript(t *testing.T) {
	h, err := New(func(string, map[string]interface{}) (interface{}, error) { return nil, nil })
	require.NoError(t, err)
	h.WithTimeout(50 * time.Millisecond)

	_, err = h.Run(context.Background(), `while (true) {}`)
	assert.Error(t, err)
}

type scriptedTools struct {
	called string
}

func (s *scriptedTools) CallTool(_ context.Context, _ id.SessionID, name string, _ map[string]interface{}) (*types.ToolResult, error) {
	s.called = name
	return &types.ToolResult{Content: []types.ContentBlock{types.TextBlock("42 results")}}, nil
}

// A scripted guest negotiates display modes and then calls a tool through
// the real bridge dispatch surface.
func TestInitializeThenToolCallRoundTrip(t *testing.T) {
	tracker := apps.NewTracker()
	source := id.NewChannelID()
	tracker.Attach(source)

	display := apps.NewDisplayController(
		types.ModeInline,
		[]types.DisplayMode{types.ModeInline, types.ModeFullscreen},
		tracker,
		nil,
	)

	tools := &scriptedTools{}
	b := bridge.New(bridge.Deps{
		Session:       &session.Session{ID: id.NewSessionID()},
		ExtensionName: "docs",
		Display:       display,
		Tools:         tools,
	})

	dispatch := func(method string, params map[string]interface{}) (interface{}, error) {
		if method == "ui/initialize" {
			var declared []string
			if raw, ok := params["availableDisplayModes"].([]interface{}); ok {
				for _, m := range raw {
					declared = append(declared, fmt.Sprint(m))
				}
			}
			display.HandleInitialize(source, declared)
			return map[string]interface{}{"displayMode": display.Active()}, nil
		}

		result, rpcErr := b.Dispatch(context.Background(), source, method, params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return result, nil
	}

	h, err := New(dispatch)
	require.NoError(t, err)

	res, err := h.Run(context.Background(), `
		host.call("ui/initialize", {availableDisplayModes: ["inline", "fullscreen"]});
		var out = host.call("tools/call", {name: "search", arguments: {q: "go"}});
		out.content[0].text;
	`)
	require.NoError(t, err)
	assert.Equal(t, "42 results", res.Value)
	assert.Equal(t, "docs__search", tools.called)
	assert.True(t, display.Negotiated())
}
