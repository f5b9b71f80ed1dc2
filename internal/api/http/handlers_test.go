package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/bridge"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/providers/theme"
	"github.com/sammcj/goose/internal/shared/types"
)

type staticFetcher struct {
	html string
	err  error
}

func (f *staticFetcher) FetchResource(_ context.Context, _, _ string) ([]byte, *types.ResourceMeta, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return []byte(f.html), &types.ResourceMeta{}, nil
}

type apiFixture struct {
	router   *gin.Engine
	sessions *session.Manager
	manager  *apps.Manager
	themes   *theme.Provider
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loader := apps.NewLoader(&staticFetcher{html: "<html><body>hi</body></html>"}, apps.LoaderConfig{Retries: 0}, nil)
	resolver := apps.NewResolver("http://127.0.0.1:9000", "s3cret")
	manager := apps.NewManager(loader, resolver, []types.DisplayMode{types.ModeInline, types.ModeFullscreen}, nil)
	sessions := session.NewManager()
	bridges := bridge.NewRegistry(bridge.Shared{})
	themes := theme.NewProvider()

	r := gin.New()
	NewHandlers(manager, sessions, bridges, themes, nil).Register(r)
	return &apiFixture{router: r, sessions: sessions, manager: manager, themes: themes}
}

func (f *apiFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := sonic.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), out))
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]interface{}
	decode(t, w, &res)
	assert.Equal(t, "ok", res["status"])
}

func TestAttachRequiresKnownSession(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/apps", map[string]string{
		"session_id":     "sess_missing",
		"extension_name": "docs",
		"uri":            "ui://docs/viewer",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttachIsIdempotentPerKey(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create("127.0.0.1:8080", "secret")

	body := map[string]string{
		"session_id":     sess.ID.String(),
		"extension_name": "docs",
		"uri":            "ui://docs/viewer",
	}
	w := f.do(http.MethodPost, "/api/apps", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var first appSummary
	decode(t, w, &first)

	w = f.do(http.MethodPost, "/api/apps", body)
	require.Equal(t, http.StatusOK, w.Code)

	var second appSummary
	decode(t, w, &second)
	assert.Equal(t, first.ID, second.ID)
}

func TestAttachRejectsBadInput(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create("127.0.0.1:8080", "secret")

	w := f.do(http.MethodPost, "/api/apps", map[string]string{
		"session_id":     sess.ID.String(),
		"extension_name": "../etc",
		"uri":            "ui://docs/viewer",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/apps", map[string]string{
		"session_id":     sess.ID.String(),
		"extension_name": "docs",
		"uri":            "ui://docs/viewer",
		"mode":           "cinema",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisplayModeRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create("127.0.0.1:8080", "secret")

	var summary appSummary
	decode(t, f.do(http.MethodPost, "/api/apps", map[string]string{
		"session_id":     sess.ID.String(),
		"extension_name": "docs",
		"uri":            "ui://docs/viewer",
	}), &summary)

	w := f.do(http.MethodPost, "/api/apps/"+summary.ID+"/display-mode", map[string]string{"mode": "fullscreen"})
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]string
	decode(t, w, &res)
	assert.Equal(t, "fullscreen", res["display_mode"])

	w = f.do(http.MethodPost, "/api/apps/"+summary.ID+"/escape", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var esc struct {
		Exited      bool   `json:"exited"`
		DisplayMode string `json:"display_mode"`
	}
	decode(t, w, &esc)
	assert.True(t, esc.Exited)
	assert.Equal(t, "inline", esc.DisplayMode)
}

func TestPipGeometryEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create("127.0.0.1:8080", "secret")

	var summary appSummary
	decode(t, f.do(http.MethodPost, "/api/apps", map[string]string{
		"session_id":     sess.ID.String(),
		"extension_name": "docs",
		"uri":            "ui://docs/viewer",
	}), &summary)

	w := f.do(http.MethodPost, "/api/apps/"+summary.ID+"/viewport", apps.Viewport{Width: 1280, Height: 800})
	require.Equal(t, http.StatusOK, w.Code)

	// Drag far past the viewport edge; the resulting position stays clamped.
	w = f.do(http.MethodPost, "/api/apps/"+summary.ID+"/pip/drag", map[string]int{"dx": 10000, "dy": 10000})
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Pip apps.PipPosition `json:"pip"`
	}
	decode(t, w, &res)
	assert.LessOrEqual(t, res.Pip.X, 1280-apps.PipWidth-apps.PipMargin)
	assert.LessOrEqual(t, res.Pip.Y, 800-apps.PipHeight-apps.PipMargin)
}

func TestCloseSessionClosesApps(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create("127.0.0.1:8080", "secret")

	var summary appSummary
	decode(t, f.do(http.MethodPost, "/api/apps", map[string]string{
		"session_id":     sess.ID.String(),
		"extension_name": "docs",
		"uri":            "ui://docs/viewer",
	}), &summary)

	w := f.do(http.MethodDelete, "/api/sessions/"+sess.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		ClosedApps int `json:"closed_apps"`
	}
	decode(t, w, &res)
	assert.Equal(t, 1, res.ClosedApps)

	w = f.do(http.MethodGet, "/api/apps/"+summary.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThemeRoutes(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/themes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Themes  []theme.Theme `json:"themes"`
		Current string        `json:"current"`
	}
	decode(t, w, &list)
	assert.Equal(t, "dark", list.Current)
	assert.GreaterOrEqual(t, len(list.Themes), 3)

	w = f.do(http.MethodPut, "/api/theme", map[string]string{"id": "light"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "light", f.themes.Current().ID)

	w = f.do(http.MethodPut, "/api/theme", map[string]string{"id": "solarized"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/themes", theme.Theme{ID: "solarized", Name: "Solarized", Type: "custom"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(http.MethodPut, "/api/theme", map[string]string{"id": "solarized"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodDelete, "/api/themes/dark", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "built-in themes stay")
}

func TestSetThemeNotifiesObservers(t *testing.T) {
	f := newAPIFixture(t)

	var got []string
	f.themes.OnSet(func(t theme.Theme) { got = append(got, t.ID) })

	w := f.do(http.MethodPut, "/api/theme", map[string]string{"id": "light"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"light"}, got)
}

func TestFailMarksInstanceErrored(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create("127.0.0.1:8080", "secret")

	var summary appSummary
	decode(t, f.do(http.MethodPost, "/api/apps", map[string]string{
		"session_id":     sess.ID.String(),
		"extension_name": "docs",
		"uri":            "ui://docs/viewer",
	}), &summary)

	w := f.do(http.MethodPost, "/api/apps/"+summary.ID+"/fail", map[string]string{"message": "iframe crashed"})
	require.Equal(t, http.StatusOK, w.Code)

	var failed appSummary
	decode(t, w, &failed)
	assert.Equal(t, apps.PhaseError, failed.Phase)
	assert.Equal(t, "iframe crashed", failed.ErrorMessage)
}
