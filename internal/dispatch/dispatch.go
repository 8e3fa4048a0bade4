// Package dispatch executes a prompt against the selected generator and
// normalizes the response into a tagged result.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/genpad/internal/generator"
	"github.com/genpad/internal/notify"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrNotConfigured     = errors.New("generation endpoint is not configured")
	ErrUnsupportedMethod = errors.New("unsupported generator method")
	ErrNotPermitted      = errors.New("generation not permitted")
	ErrTransport         = errors.New("generation request failed")
)

const (
	// PermissionGenerate gates every generation request
	PermissionGenerate = "genai:generate"
	// FallbackEndpointKey is the site configuration key of the fallback endpoint
	FallbackEndpointKey = "genai_fallback_endpoint"
	// ScopeSite is the configuration scope used for site-wide values
	ScopeSite = "site"

	genericFailureMessage = "Failed to generate code"
	maxResponseBytes      = 8 << 20
)

// MockCode is the canned result of mock generators
const MockCode = `from sdv_model import Vehicle
import plugins
from browser import aio

vehicle = Vehicle()

while True:
    speed = await vehicle.Speed.get()
    print("Current speed:", speed)
    await aio.sleep(1)
`

// Kind tags a generation result
type Kind string

const (
	KindCode       Kind = "code"
	KindDiagnostic Kind = "diagnostic"
	KindError      Kind = "error"
)

// Result is the outcome of one generation
type Result struct {
	Kind    Kind   `json:"kind"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// Callbacks receive status changes while a generation runs. Nil fields are skipped.
type Callbacks struct {
	Generating func(bool)
	Code       func(string)
	Finished   func(bool)
}

// ConfigSource resolves site configuration values
type ConfigSource interface {
	GetConfig(ctx context.Context, key, scope, scopeContext, fallback string) string
}

// CapabilityChecker answers whether the caller in ctx holds a permission
type CapabilityChecker interface {
	HasCapability(ctx context.Context, permission string) bool
}

// Options configures a Dispatcher
type Options struct {
	HTTPClient   *http.Client
	Timeout      time.Duration
	MockDelay    time.Duration
	Limiter      *rate.Limiter
	Notifier     notify.Notifier
	Capabilities CapabilityChecker
	Config       ConfigSource
}

// Dispatcher sends prompts to generators
type Dispatcher struct {
	client       *http.Client
	timeout      time.Duration
	mockDelay    time.Duration
	limiter      *rate.Limiter
	notifier     notify.Notifier
	capabilities CapabilityChecker
	config       ConfigSource
}

// New creates a dispatcher; zero options get working defaults
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		client:       opts.HTTPClient,
		timeout:      opts.Timeout,
		mockDelay:    opts.MockDelay,
		limiter:      opts.Limiter,
		notifier:     opts.Notifier,
		capabilities: opts.Capabilities,
		config:       opts.Config,
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	if d.timeout <= 0 {
		d.timeout = 120 * time.Second
	}
	if d.limiter == nil {
		d.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if d.notifier == nil {
		d.notifier = notify.LogNotifier{}
	}
	return d
}

// Generate runs prompt against sel. It never returns an error or panics:
// every failure is reported through the result.
func (d *Dispatcher) Generate(ctx context.Context, sel generator.Descriptor, prompt string, cb Callbacks) (res Result) {
	if cb.Generating != nil {
		cb.Generating(true)
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("generator_id", sel.ID).Msg("Generation panicked")
			res = errorResult(fmt.Errorf("%w: %v", ErrTransport, r), genericFailureMessage)
		}
		if cb.Generating != nil {
			cb.Generating(false)
		}
		if res.Kind == KindCode && cb.Code != nil {
			cb.Code(res.Text)
		}
		if cb.Finished != nil {
			cb.Finished(true)
		}
	}()

	if d.capabilities != nil && !d.capabilities.HasCapability(ctx, PermissionGenerate) {
		return errorResult(ErrNotPermitted, "You do not have permission to generate code")
	}

	sel = sel.WithDefaults()
	logger := log.With().
		Str("generator_id", sel.ID).
		Str("category", string(sel.Category)).
		Logger()

	switch {
	case sel.IsMock:
		logger.Debug().Dur("delay", d.mockDelay).Msg("Serving mock generation")
		return d.mock(ctx)
	case !sel.UsesFallback():
		logger.Debug().Str("method", string(sel.Method)).Msg("Dispatching to generator endpoint")
		return d.explicit(ctx, sel, prompt)
	default:
		logger.Debug().Msg("Dispatching to fallback endpoint")
		return d.fallback(ctx, sel, prompt)
	}
}

func (d *Dispatcher) mock(ctx context.Context) Result {
	timer := time.NewTimer(d.mockDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return Result{Kind: KindCode, Text: MockCode}
	case <-ctx.Done():
		return errorResult(ctx.Err(), genericFailureMessage)
	}
}

func (d *Dispatcher) explicit(ctx context.Context, sel generator.Descriptor, prompt string) Result {
	var req *http.Request
	var err error

	switch sel.Method {
	case generator.MethodGet:
		target, perr := appendQuery(sel.EndpointURL, sel.RequestField, prompt)
		if perr != nil {
			return d.transportFailure(ctx, sel, fmt.Errorf("%w: %v", ErrTransport, perr), nil)
		}
		req, err = http.NewRequest(http.MethodGet, target, nil)
	case generator.MethodPost:
		body := map[string]any{"systemMessage": sel.Samples}
		for k, v := range sel.BuildPayload(prompt) {
			body[k] = v
		}
		raw, merr := json.Marshal(body)
		if merr != nil {
			return d.transportFailure(ctx, sel, fmt.Errorf("%w: encode body: %v", ErrTransport, merr), nil)
		}
		req, err = http.NewRequest(http.MethodPost, sel.EndpointURL, bytes.NewReader(raw))
	default:
		log.Warn().
			Str("generator_id", sel.ID).
			Str("method", string(sel.Method)).
			Msg("Generator declares an unsupported method")
		return errorResult(fmt.Errorf("%w: %s", ErrUnsupportedMethod, sel.Method),
			fmt.Sprintf("Generator %q uses unsupported method %s", sel.Name, sel.Method))
	}
	if err != nil {
		return d.transportFailure(ctx, sel, fmt.Errorf("%w: %v", ErrTransport, err), nil)
	}

	// Sent verbatim, with no scheme prefix, even when empty.
	req.Header.Set("Authorization", sel.AuthToken)
	req.Header.Set("Content-Type", "application/json")

	body, err := d.do(ctx, req)
	if err != nil {
		return d.transportFailure(ctx, sel, err, body)
	}
	return normalizeField(body, sel.ResponseField)
}

func (d *Dispatcher) fallback(ctx context.Context, sel generator.Descriptor, prompt string) Result {
	endpoint := ""
	if d.config != nil {
		endpoint = strings.TrimSpace(d.config.GetConfig(ctx, FallbackEndpointKey, ScopeSite, string(sel.Category), ""))
	}
	if endpoint == "" {
		msg := "Code generation is not configured for this site"
		d.notify(ctx, notify.Notification{Level: notify.LevelError, Title: "Generation unavailable", Message: msg})
		return errorResult(ErrNotConfigured, msg)
	}

	raw, err := json.Marshal(map[string]any{
		"systemMessage": sel.Samples,
		"message":       prompt,
	})
	if err != nil {
		return d.transportFailure(ctx, sel, fmt.Errorf("%w: encode body: %v", ErrTransport, err), nil)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return d.transportFailure(ctx, sel, fmt.Errorf("%w: %v", ErrTransport, err), nil)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := d.do(ctx, req)
	if err != nil {
		return d.transportFailure(ctx, sel, err, body)
	}
	return normalizeFallback(body)
}

// do sends req within the dispatcher timeout. On a non-2xx status it returns
// the body alongside the error so the server message can be surfaced.
func (d *Dispatcher) do(ctx context.Context, req *http.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", ErrTransport, err)
	}

	resp, err := d.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	return body, nil
}

func (d *Dispatcher) transportFailure(ctx context.Context, sel generator.Descriptor, err error, body []byte) Result {
	msg := serverMessage(body)
	if msg == "" {
		msg = genericFailureMessage
	}

	log.Error().Err(err).
		Str("generator_id", sel.ID).
		Str("server_message", msg).
		Msg("Generation request failed")

	d.notify(ctx, notify.Notification{Level: notify.LevelError, Title: "Generation failed", Message: msg})
	return errorResult(err, msg)
}

func (d *Dispatcher) notify(ctx context.Context, n notify.Notification) {
	notify.FromContext(ctx, d.notifier).Notify(ctx, n)
}

func errorResult(err error, msg string) Result {
	return Result{Kind: KindError, Message: msg, Err: err}
}

// appendQuery adds field=prompt to endpoint, escaping like encodeURIComponent
func appendQuery(endpoint, field, prompt string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	pair := componentEscape(field) + "=" + componentEscape(prompt)
	if u.RawQuery == "" {
		u.RawQuery = pair
	} else {
		u.RawQuery += "&" + pair
	}
	return u.String(), nil
}

func componentEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
