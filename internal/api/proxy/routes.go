package proxy

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/types"
	"github.com/sammcj/goose/internal/shared/utils"
)

// GuestRoute is the path staging and serving guest HTML.
const GuestRoute = "/mcp-app-guest"

// Routes serves the sandbox proxy endpoints.
type Routes struct {
	secret  string
	store   *Store
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewRoutes creates the proxy route handlers.
func NewRoutes(secret string, store *Store, logger *logging.Logger) *Routes {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Routes{
		secret: secret,
		store:  store,
		logger: logger.Named("proxy"),
	}
}

// WithMetrics adds metrics tracking to the routes.
func (rt *Routes) WithMetrics(metrics *monitoring.Metrics) *Routes {
	rt.metrics = metrics
	return rt
}

// Register mounts the proxy routes on a router.
func (rt *Routes) Register(r gin.IRouter) {
	r.GET(apps.ProxyRoute, rt.serveProxy)
	r.POST(GuestRoute, rt.stageGuest)
	r.GET(GuestRoute, rt.serveGuest)
}

// authorized compares the request secret in constant time.
func (rt *Routes) authorized(secret string) bool {
	return rt.secret != "" &&
		subtle.ConstantTimeCompare([]byte(secret), []byte(rt.secret)) == 1
}

func (rt *Routes) record(route, status string) {
	if rt.metrics != nil {
		rt.metrics.RecordProxyRequest(route, status)
	}
}

// serveProxy derives the outer CSP from the query's domain lists and serves
// the proxy document.
func (rt *Routes) serveProxy(c *gin.Context) {
	if !rt.authorized(c.Query("secret")) {
		rt.record(apps.ProxyRoute, "unauthorized")
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	csp := types.CSPDomains{
		ConnectDomains:  types.ParseDomainList(c.Query("connect_domains")),
		ResourceDomains: types.ParseDomainList(c.Query("resource_domains")),
		FrameDomains:    types.ParseDomainList(c.Query("frame_domains")),
		BaseURIDomains:  types.ParseDomainList(c.Query("base_uri_domains")),
		ScriptDomains:   types.ParseDomainList(c.Query("script_domains")),
	}

	html := strings.ReplaceAll(proxyHTML, "{{OUTER_CSP}}", csp.OuterPolicy())

	rt.record(apps.ProxyRoute, "ok")
	c.Header("Referrer-Policy", "no-referrer")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

type stageGuestBody struct {
	Secret string `json:"secret"`
	HTML   string `json:"html"`
	CSP    string `json:"csp"`
}

// stageGuest stores guest HTML and returns the one-time retrieval nonce.
func (rt *Routes) stageGuest(c *gin.Context) {
	var body stageGuestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		rt.record(GuestRoute, "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !rt.authorized(body.Secret) {
		rt.record(GuestRoute, "unauthorized")
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}
	if len(body.HTML) > utils.MaxResourceSize {
		rt.record(GuestRoute, "too_large")
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "guest html too large"})
		return
	}

	nonce := rt.store.Stage(body.HTML, body.CSP)
	rt.logger.Debug("guest content staged", zap.Int("bytes", len(body.HTML)))

	rt.record(GuestRoute, "staged")
	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// serveGuest serves staged guest HTML exactly once, with the stored CSP.
// strict-origin referrers keep third-party SDKs inside the guest working;
// they need the origin for their own auth.
func (rt *Routes) serveGuest(c *gin.Context) {
	if !rt.authorized(c.Query("secret")) {
		rt.record(GuestRoute, "unauthorized")
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	html, csp, ok := rt.store.Consume(c.Query("nonce"))
	if !ok {
		rt.record(GuestRoute, "not_found")
		c.String(http.StatusNotFound, "Guest content not found or already consumed")
		return
	}

	rt.record(GuestRoute, "served")
	c.Header("Referrer-Policy", "strict-origin")
	if csp != "" {
		c.Header("Content-Security-Policy", csp)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
