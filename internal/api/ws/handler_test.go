package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/bridge"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/providers/theme"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
)

type stubFetcher struct{ html string }

func (f *stubFetcher) FetchResource(context.Context, string, string) ([]byte, *types.ResourceMeta, error) {
	return []byte(f.html), nil, nil
}

// blockingTools parks every tool call until released, standing in for a slow
// backend.
type blockingTools struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingTools) CallTool(ctx context.Context, _ id.SessionID, _ string, _ map[string]interface{}) (*types.ToolResult, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &types.ToolResult{Content: []types.ContentBlock{}}, nil
}

type channelFixture struct {
	handler  *Handler
	manager  *apps.Manager
	instance *apps.Instance
	url      string
}

// newChannelFixture stands up a ready instance behind a live websocket
// endpoint.
func newChannelFixture(t *testing.T, tools session.ToolCaller, themeSource apps.ThemeSource) *channelFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loader := apps.NewLoader(&stubFetcher{html: "<html><body>ok</body></html>"},
		apps.LoaderConfig{Backoff: time.Millisecond}, nil)
	resolver := apps.NewResolver("http://127.0.0.1:8000", "s3cret")
	manager := apps.NewManager(loader, resolver,
		[]types.DisplayMode{types.ModeInline, types.ModeFullscreen}, nil)
	sessions := session.NewManager()
	sess := sessions.Create("http://127.0.0.1:9000", "tok")
	bridges := bridge.NewRegistry(bridge.Shared{Tools: tools})
	contexts := apps.NewContextBuilder(themeSource, "goose-test")

	h := NewHandler(manager, sessions, bridges, contexts, nil)

	inst, _ := manager.Attach(context.Background(), "ui://docs/viewer", "docs", sess.ID, apps.AttachOptions{})
	require.Eventually(t, func() bool {
		return inst.State().Phase == apps.PhaseReady
	}, 2*time.Second, 5*time.Millisecond)

	r := gin.New()
	r.GET("/ws/:id", h.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &channelFixture{
		handler:  h,
		manager:  manager,
		instance: inst,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + inst.ID.String(),
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, frameID int, method string, params map[string]interface{}) {
	t.Helper()
	data, err := EncodeFrame(&Frame{ID: frameID, Method: method, Params: params})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readResponse pumps frames until a response arrives, skipping host-pushed
// notifications.
func readResponse(t *testing.T, conn *websocket.Conn) *Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		frame, err := DecodeFrame(data)
		require.NoError(t, err)
		if frame.Notification() {
			continue
		}
		return frame
	}
}

func TestSlowToolCallDoesNotStallChannel(t *testing.T) {
	tools := &blockingTools{started: make(chan struct{}), release: make(chan struct{})}
	f := newChannelFixture(t, tools, nil)

	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	defer conn.Close()

	sendFrame(t, conn, 1, "tools/call", map[string]interface{}{"name": "search"})
	select {
	case <-tools.started:
	case <-time.After(2 * time.Second):
		t.Fatal("tool call never reached the backend")
	}

	// The tool call is parked; a later display request must still get
	// through and answer first.
	sendFrame(t, conn, 2, "ui/request-display-mode", map[string]interface{}{"mode": "fullscreen"})
	first := readResponse(t, conn)
	assert.EqualValues(t, 2, first.ID, "display request answered while the tool call is in flight")
	require.Nil(t, first.Error)

	close(tools.release)
	second := readResponse(t, conn)
	assert.EqualValues(t, 1, second.ID)
	assert.Nil(t, second.Error)
}

func TestChannelAnswersDisplayRequestsInline(t *testing.T) {
	tools := &blockingTools{started: make(chan struct{}), release: make(chan struct{})}
	f := newChannelFixture(t, tools, nil)

	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	defer conn.Close()

	sendFrame(t, conn, 1, "ui/initialize", map[string]interface{}{
		"appCapabilities": map[string]interface{}{
			"availableDisplayModes": []interface{}{"inline", "fullscreen"},
		},
	})
	resp := readResponse(t, conn)
	assert.EqualValues(t, 1, resp.ID)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, result, "hostContext")
}

func TestThemeChangeReachesGuestChannels(t *testing.T) {
	tools := &blockingTools{started: make(chan struct{}), release: make(chan struct{})}
	themes := theme.NewProvider()
	f := newChannelFixture(t, tools, themes)

	// The composition root fans theme switches out to every instance.
	themes.OnSet(func(theme.Theme) {
		for _, inst := range f.manager.List() {
			f.handler.PushHostContext(inst)
		}
	})

	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Round-trip once so the channel is registered before the switch.
	sendFrame(t, conn, 1, "ui/initialize", map[string]interface{}{
		"appCapabilities": map[string]interface{}{
			"availableDisplayModes": []interface{}{"inline"},
		},
	})
	readResponse(t, conn)

	require.NoError(t, themes.Set("light"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		frame, err := DecodeFrame(data)
		require.NoError(t, err)
		if frame.Method != "ui/host-context-changed" {
			continue
		}
		ctx, ok := frame.Params["hostContext"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "light", ctx["theme"])
		return
	}
}
