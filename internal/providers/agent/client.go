package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sammcj/goose/internal/infrastructure/config"
	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/infrastructure/resilience"
	"github.com/sammcj/goose/internal/infrastructure/tracing"
	"github.com/sammcj/goose/internal/shared/id"
	"github.com/sammcj/goose/internal/shared/types"
	"github.com/sammcj/goose/internal/shared/utils"
)

const secretHeader = "X-Secret-Key"

// Client talks to the agent backend over HTTP with rate limiting, retries,
// and a circuit breaker.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewClient creates an agent backend client from configuration.
func NewClient(cfg config.AgentConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryAttempts
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Address, "/")).
		SetTimeout(time.Duration(cfg.TimeoutSecs) * time.Second).
		SetHeader("Content-Type", "application/json")
	if cfg.Secret != "" {
		restyClient.SetHeader(secretHeader, cfg.Secret)
	}
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("agent-backend", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: rate.NewLimiter(rate.Inf, 0),
		breaker: breaker,
		logger:  logger.Named("agent"),
	}
}

// WithMetrics adds metrics tracking to the client.
func (c *Client) WithMetrics(metrics *monitoring.Metrics) *Client {
	c.metrics = metrics
	return c
}

// WithRateLimit bounds outgoing requests per second. Zero means unlimited.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return c
}

// post performs one guarded round trip and decodes the response into out.
func (c *Client) post(ctx context.Context, url string, body interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetHeaders(tracing.OutboundHeaders(ctx)).
			SetBody(body).
			SetResult(out).
			Post(url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("agent backend returned %d: %s",
				resp.StatusCode(), utils.TruncateString(resp.String(), 200))
		}
		return nil
	})
}

func (c *Client) record(method, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordAgentCall(method, status, time.Since(start))
	}
}

type toolCallBody struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// CallTool invokes a tool on the backend within a session.
func (c *Client) CallTool(ctx context.Context, sessionID id.SessionID, name string, args map[string]interface{}) (*types.ToolResult, error) {
	start := time.Now()

	var result types.ToolResult
	err := c.post(ctx,
		fmt.Sprintf("/sessions/%s/tools/call", sessionID),
		toolCallBody{Name: name, Arguments: args},
		&result,
	)
	if err != nil {
		c.record("tools/call", "error", start)
		c.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		return nil, err
	}

	c.record("tools/call", "success", start)
	if result.Content == nil {
		result.Content = []types.ContentBlock{}
	}
	return &result, nil
}

type resourceReadBody struct {
	URI string `json:"uri"`
}

type resourceReadResponse struct {
	Contents []types.ResourceContents `json:"contents"`
}

// ReadResource reads an extension resource within a session.
func (c *Client) ReadResource(ctx context.Context, sessionID id.SessionID, uri string) ([]types.ResourceContents, error) {
	start := time.Now()

	var result resourceReadResponse
	err := c.post(ctx,
		fmt.Sprintf("/sessions/%s/resources/read", sessionID),
		resourceReadBody{URI: uri},
		&result,
	)
	if err != nil {
		c.record("resources/read", "error", start)
		return nil, err
	}

	c.record("resources/read", "success", start)
	return result.Contents, nil
}

// CreateMessage forwards a sampling request to the session's own backend,
// authenticated with the session's secret rather than the client default.
func (c *Client) CreateMessage(ctx context.Context, backendAddr, secret string, params map[string]interface{}) (map[string]interface{}, error) {
	start := time.Now()

	url := backendAddr
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	url = strings.TrimRight(url, "/") + "/sampling/create"

	result, err := resilience.Do(ctx, c.breaker, func(ctx context.Context) (map[string]interface{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var out map[string]interface{}
		resp, err := c.resty.R().
			SetContext(ctx).
			SetHeader(secretHeader, secret).
			SetBody(params).
			SetResult(&out).
			Post(url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("sampling forward returned %d", resp.StatusCode())
		}
		return out, nil
	})
	if err != nil {
		c.record("sampling/createMessage", "error", start)
		return nil, err
	}

	c.record("sampling/createMessage", "success", start)
	return result, nil
}

type uiResourceBody struct {
	ExtensionName string `json:"extension_name"`
	URI           string `json:"uri"`
}

type uiResourceResponse struct {
	HTML string              `json:"html"`
	Meta *types.ResourceMeta `json:"meta,omitempty"`
}

// FetchResource fetches the raw UI resource for an app instance. This is the
// loader-facing fetch path; retries live in the loader, so the transport-level
// retry budget here stays small.
func (c *Client) FetchResource(ctx context.Context, extensionName, uri string) ([]byte, *types.ResourceMeta, error) {
	start := time.Now()

	var result uiResourceResponse
	err := c.post(ctx, "/ui/resource", uiResourceBody{ExtensionName: extensionName, URI: uri}, &result)
	if err != nil {
		c.record("ui/resource", "error", start)
		return nil, nil, err
	}
	if result.HTML == "" {
		c.record("ui/resource", "error", start)
		return nil, nil, fmt.Errorf("resource %s has no HTML content", uri)
	}

	c.record("ui/resource", "success", start)
	return []byte(result.HTML), result.Meta, nil
}

// Healthy reports whether the backend answers its health route.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.resty.R().SetContext(ctx).Get("/status")
	return err == nil && resp.StatusCode() == http.StatusOK
}
