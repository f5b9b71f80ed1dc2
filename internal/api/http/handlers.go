package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/bridge"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/providers/theme"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
	"github.com/sammcj/goose/internal/shared/utils"
)

// Handlers serves the host control API.
type Handlers struct {
	manager  *apps.Manager
	sessions *session.Manager
	bridges  *bridge.Registry
	themes   *theme.Provider
	logger   *logging.Logger
}

// NewHandlers creates the control API handlers.
func NewHandlers(manager *apps.Manager, sessions *session.Manager, bridges *bridge.Registry, themes *theme.Provider, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		manager:  manager,
		sessions: sessions,
		bridges:  bridges,
		themes:   themes,
		logger:   logger.Named("api"),
	}
}

// Register mounts the control API routes.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	{
		api.POST("/sessions", h.createSession)
		api.GET("/sessions", h.listSessions)
		api.DELETE("/sessions/:id", h.closeSession)

		api.POST("/apps", h.attachApp)
		api.GET("/apps", h.listApps)
		api.GET("/apps/stats", h.appStats)
		api.GET("/apps/:id", h.getApp)
		api.DELETE("/apps/:id", h.closeApp)
		api.POST("/apps/:id/detach", h.detachApp)
		api.POST("/apps/:id/focus", h.focusApp)
		api.POST("/apps/:id/refresh", h.refreshApp)
		api.POST("/apps/:id/fail", h.failApp)

		api.GET("/themes", h.listThemes)
		api.POST("/themes", h.registerTheme)
		api.DELETE("/themes/:id", h.deleteTheme)
		api.PUT("/theme", h.setTheme)

		api.POST("/apps/:id/display-mode", h.setDisplayMode)
		api.POST("/apps/:id/escape", h.escape)
		api.POST("/apps/:id/viewport", h.setViewport)
		api.POST("/apps/:id/pip/drag", h.dragPip)
		api.POST("/apps/:id/pip/nudge", h.nudgePip)
	}
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.sessions.Count(),
		"apps":     h.manager.Stats(),
	})
}

// appSummary is the instance view returned to the frontend.
type appSummary struct {
	ID            string            `json:"id"`
	URI           string            `json:"uri"`
	ExtensionName string            `json:"extension_name"`
	SessionID     string            `json:"session_id"`
	Phase         apps.Phase        `json:"phase"`
	SandboxURL    string            `json:"sandbox_url,omitempty"`
	DisplayMode   types.DisplayMode `json:"display_mode"`
	PrefersBorder bool              `json:"prefers_border"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func summarize(inst *apps.Instance) appSummary {
	state := inst.State()
	s := appSummary{
		ID:            inst.ID.String(),
		URI:           inst.URI,
		ExtensionName: inst.ExtensionName,
		SessionID:     inst.SessionID.String(),
		Phase:         state.Phase,
		DisplayMode:   inst.Display().Active(),
		CreatedAt:     inst.CreatedAt,
	}
	if state.Phase == apps.PhaseReady {
		s.SandboxURL = state.SandboxURL
	}
	if state.Phase == apps.PhaseError {
		s.ErrorMessage = state.Message
	}
	if state.Meta != nil {
		s.PrefersBorder = state.Meta.PrefersBorder
	}
	return s
}

type createSessionBody struct {
	BackendAddr   string `json:"backend_addr" binding:"required"`
	BackendSecret string `json:"backend_secret"`
}

func (h *Handlers) createSession(c *gin.Context) {
	var body createSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := h.sessions.Create(body.BackendAddr, body.BackendSecret)
	c.JSON(http.StatusCreated, s)
}

func (h *Handlers) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.sessions.List()})
}

func (h *Handlers) closeSession(c *gin.Context) {
	sessionID := id.SessionID(c.Param("id"))
	closed := h.manager.CloseSession(sessionID)
	if !h.sessions.Close(sessionID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed_apps": closed})
}

type attachAppBody struct {
	SessionID     string         `json:"session_id" binding:"required"`
	ExtensionName string         `json:"extension_name" binding:"required"`
	URI           string         `json:"uri" binding:"required"`
	SeedHTML      string         `json:"seed_html"`
	Mode          string         `json:"mode"`
	Viewport      *apps.Viewport `json:"viewport"`
}

func (h *Handlers) attachApp(c *gin.Context) {
	var body attachAppBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateExtensionName(body.ExtensionName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateURI(body.URI); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, ok := h.sessions.Get(id.SessionID(body.SessionID))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	opts := apps.AttachOptions{
		SeedHTML: body.SeedHTML,
		Viewport: body.Viewport,
	}
	if body.Mode != "" {
		mode, ok := types.ParseDisplayMode(body.Mode)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown display mode"})
			return
		}
		opts.InitialMode = mode
	}

	inst, created := h.manager.Attach(c.Request.Context(), body.URI, body.ExtensionName, sess.ID, opts)
	h.sessions.Touch(sess.ID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, summarize(inst))
}

func (h *Handlers) listApps(c *gin.Context) {
	instances := h.manager.List()
	out := make([]appSummary, 0, len(instances))
	for _, inst := range instances {
		out = append(out, summarize(inst))
	}
	c.JSON(http.StatusOK, gin.H{"apps": out})
}

func (h *Handlers) appStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Stats())
}

// instance resolves the :id route param, replying 404 on a miss.
func (h *Handlers) instance(c *gin.Context) (*apps.Instance, bool) {
	inst, ok := h.manager.Get(id.InstanceID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown app instance"})
	}
	return inst, ok
}

func (h *Handlers) getApp(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, summarize(inst))
}

func (h *Handlers) closeApp(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	h.manager.Close(inst.ID)
	h.bridges.Drop(inst.ID)
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (h *Handlers) detachApp(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	h.manager.Detach(inst.ID)
	c.JSON(http.StatusOK, gin.H{"detached": true})
}

func (h *Handlers) focusApp(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	h.manager.Focus(inst.ID)
	c.JSON(http.StatusOK, gin.H{"focused": true})
}

func (h *Handlers) refreshApp(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	inst.Refresh(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"refreshing": true})
}

type failAppBody struct {
	Message string `json:"message" binding:"required"`
}

// failApp is the central route for rendering-layer faults reported by the
// frontend; the instance lands in its terminal error state.
func (h *Handlers) failApp(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	var body failAppBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inst.Fail(body.Message)
	c.JSON(http.StatusOK, summarize(inst))
}

func (h *Handlers) listThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"themes":  h.themes.List(),
		"current": h.themes.Current().ID,
	})
}

func (h *Handlers) registerTheme(c *gin.Context) {
	var t theme.Theme
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.themes.Register(t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handlers) deleteTheme(c *gin.Context) {
	if err := h.themes.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type setThemeBody struct {
	ID string `json:"id" binding:"required"`
}

// setTheme switches the active theme. Registered observers fan the change
// out to every live guest channel.
func (h *Handlers) setTheme(c *gin.Context) {
	var body setThemeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.themes.Set(body.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.themes.Current())
}

type displayModeBody struct {
	Mode string `json:"mode" binding:"required"`
}

func (h *Handlers) setDisplayMode(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	var body displayModeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, valid := types.ParseDisplayMode(body.Mode)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown display mode"})
		return
	}
	inst.Display().SetMode(mode)
	c.JSON(http.StatusOK, gin.H{"display_mode": inst.Display().Active()})
}

func (h *Handlers) escape(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	exited := inst.Display().HandleEscape()
	c.JSON(http.StatusOK, gin.H{
		"exited":       exited,
		"display_mode": inst.Display().Active(),
	})
}

func (h *Handlers) setViewport(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	var vp apps.Viewport
	if err := c.ShouldBindJSON(&vp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inst.Display().SetViewport(vp)
	c.JSON(http.StatusOK, gin.H{"pip": inst.Display().Pip()})
}

type pipDragBody struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func (h *Handlers) dragPip(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	var body pipDragBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pos := inst.Display().DragPip(body.DX, body.DY)
	c.JSON(http.StatusOK, gin.H{"pip": pos})
}

type pipNudgeBody struct {
	DX    int  `json:"dx"`
	DY    int  `json:"dy"`
	Large bool `json:"large"`
}

func (h *Handlers) nudgePip(c *gin.Context) {
	inst, ok := h.instance(c)
	if !ok {
		return
	}
	var body pipNudgeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pos := inst.Display().NudgePip(body.DX, body.DY, body.Large)
	c.JSON(http.StatusOK, gin.H{"pip": pos})
}
