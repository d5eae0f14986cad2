// Package pipeline runs one feature invocation end to end: parameter
// extraction, validation, permission enforcement, handler execution, and
// envelope construction. Every feature, whatever its author, goes through
// this same path.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"featurehost/internal/manifest"
	"featurehost/internal/platform/metrics"
	"featurehost/internal/ratelimit"
	"featurehost/internal/validate"
	"featurehost/pkg/platform/middleware/metadata"
)

// State names the stages of one invocation. Failed is terminal and reachable
// from any non-terminal state.
type State string

const (
	StateReceived   State = "received"
	StateValidating State = "validating"
	StateAuthorized State = "authorized"
	StateExecuting  State = "executing"
	StateFormatting State = "formatting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// maxBodyBytes caps request bodies; features exchange small JSON documents.
const maxBodyBytes = 1 << 20

// Request is the transport-agnostic input to one invocation.
type Request struct {
	Params        map[string]string
	Body          []byte
	ClientIP      string
	APIKey        string
	Authorization string
}

// Outcome is the terminal result of one invocation.
type Outcome struct {
	Status     int
	State      State
	RetryAfter int // seconds, set only on rate-limited outcomes
	Envelope   Envelope
}

// Config carries the shared collaborators a pipeline needs; the registry
// builds one pipeline per registered feature from a single Config.
type Config struct {
	Limiter        *ratelimit.Service
	Credentials    validate.CredentialChecker
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	HandlerTimeout time.Duration
}

// Pipeline executes requests for a single registered feature.
type Pipeline struct {
	manifest *manifest.Manifest
	handler  Handler
	cfg      Config
}

func New(m *manifest.Manifest, handler Handler, cfg Config) *Pipeline {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{manifest: m, handler: handler, cfg: cfg}
}

// Manifest returns the immutable manifest this pipeline serves.
func (p *Pipeline) Manifest() *manifest.Manifest {
	return p.manifest
}

// ParseRequest extracts parameters from an HTTP request: query string for
// GET, flat JSON body for POST. A malformed JSON body degrades to an empty
// parameter set rather than failing the request; required-parameter checks
// still apply downstream. The raw body is retained for the wallet check.
func ParseRequest(r *http.Request) *Request {
	req := &Request{
		Params:        map[string]string{},
		APIKey:        r.Header.Get("X-API-Key"),
		Authorization: r.Header.Get("Authorization"),
	}

	if r.Method == http.MethodGet {
		for name, values := range r.URL.Query() {
			if len(values) > 0 {
				req.Params[name] = values[0]
			}
		}
		return req
	}

	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err == nil {
			req.Body = body
			req.Params = flattenJSON(body)
		}
	}
	return req
}

// ParseHTTP builds the pipeline request from an HTTP request, picking up the
// client IP placed in the context by the metadata middleware.
func ParseHTTP(r *http.Request) *Request {
	req := ParseRequest(r)
	req.ClientIP = metadata.GetClientIP(r.Context())
	if req.ClientIP == "" {
		req.ClientIP = metadata.ClientIPFromRequest(r)
	}
	return req
}

// flattenJSON turns the top level of a JSON object into string parameters.
// Nested values stay available to handlers through the raw body.
func flattenJSON(body []byte) map[string]string {
	params := map[string]string{}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return params
	}
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			params[name] = v
		case float64:
			params[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[name] = strconv.FormatBool(v)
		}
	}
	return params
}

// Handle runs the full state machine for one request and always returns a
// terminal outcome; errors never escape as anything but an envelope.
func (p *Pipeline) Handle(ctx context.Context, req *Request) *Outcome {
	// Received: transport already parsed parameters into req.
	outcome := p.validateRequest(ctx, req)
	if outcome != nil {
		return p.observe(outcome)
	}

	// Authorized: a feature whose declared response contract is a trade must
	// hold the executeTrade grant; the manifest is the ceiling.
	if p.manifest.Response.Kind == manifest.KindTrade && !p.manifest.Permissions.ExecuteTrade {
		return p.observe(p.fail("Feature is not permitted to execute trades", http.StatusForbidden))
	}

	res, outcome := p.execute(ctx, req)
	if outcome != nil {
		return p.observe(outcome)
	}

	// Permission cross-check on the result: handlers cannot smuggle a trade
	// past an executeTrade:false manifest, whatever their own logic says.
	if hasTradeAction(res) && !p.manifest.Permissions.ExecuteTrade {
		p.cfg.Logger.Warn("handler attempted trade without permission grant",
			"feature_id", p.manifest.ID)
		return p.observe(p.fail("Feature is not permitted to execute trades", http.StatusForbidden))
	}

	// Formatting.
	env := Envelope{
		Success:   true,
		Data:      res.Data,
		Message:   res.Message,
		Intent:    res.Intent,
		Actions:   normalizeActions(p.cfg.Logger, p.manifest.ID, res.Actions),
		FeatureID: p.manifest.ID,
		Version:   p.manifest.Version,
		Metadata:  newMetadata(),
	}
	return p.observe(&Outcome{Status: http.StatusOK, State: StateCompleted, Envelope: env})
}

// validateRequest runs the independent checks concurrently and reports the
// first failure in fixed priority order — rate limit, auth, wallet,
// parameters — so simultaneous failures produce deterministic errors.
func (p *Pipeline) validateRequest(ctx context.Context, req *Request) *Outcome {
	wallet := validate.WalletAddress(req.Body)
	identity := ratelimit.Identity(wallet, req.APIKey, req.ClientIP)

	var (
		rateResult   *ratelimit.Result
		authResult   validate.Result
		walletResult validate.Result
		paramsResult validate.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p.cfg.Limiter == nil {
			return nil
		}
		var err error
		rateResult, err = p.cfg.Limiter.Check(gctx, identity)
		return err
	})
	g.Go(func() error {
		authResult = validate.Auth(gctx, p.manifest, req.Authorization, p.cfg.Credentials)
		return nil
	})
	g.Go(func() error {
		walletResult = validate.Wallet(p.manifest, req.Body)
		return nil
	})
	g.Go(func() error {
		paramsResult = validate.Params(p.manifest, req.Params)
		return nil
	})
	if err := g.Wait(); err != nil {
		p.cfg.Logger.Error("validation failed internally", "feature_id", p.manifest.ID, "error", err)
		return p.fail("Internal error", http.StatusInternalServerError)
	}

	if rateResult != nil && !rateResult.Allowed {
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.RateLimitedTotal.Inc()
		}
		out := p.fail("Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		out.RetryAfter = rateResult.RetryAfter
		return out
	}
	for _, r := range []validate.Result{authResult, walletResult, paramsResult} {
		if !r.OK() {
			return p.fail(r.Reason, r.StatusCode)
		}
	}
	return nil
}

// execute invokes the handler under the configured timeout, catching errors
// and panics at the pipeline boundary.
func (p *Pipeline) execute(ctx context.Context, req *Request) (*HandlerResult, *Outcome) {
	execCtx, cancel := context.WithTimeout(ctx, p.cfg.HandlerTimeout)
	defer cancel()

	type execResult struct {
		res *HandlerResult
		err error
	}
	ch := make(chan execResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- execResult{err: panicError{value: r}}
			}
		}()
		res, err := p.handler.Execute(execCtx, req.Params)
		ch <- execResult{res: res, err: err}
	}()

	select {
	case <-execCtx.Done():
		// The handler goroutine is not interrupted; any cache writes it
		// completes are still honored for other callers.
		p.cfg.Logger.Warn("handler timed out", "feature_id", p.manifest.ID,
			"timeout", p.cfg.HandlerTimeout)
		return nil, p.fail("Feature timed out", http.StatusGatewayTimeout)
	case out := <-ch:
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.ObserveHandler(p.manifest.ID, time.Since(start))
		}
		if out.err != nil {
			// Raw error stays in the log; the envelope carries only the
			// handler's own message, never stack or credential content.
			p.cfg.Logger.Error("handler failed", "feature_id", p.manifest.ID, "error", out.err)
			msg := out.err.Error()
			if _, panicked := out.err.(panicError); panicked {
				msg = "Internal feature error"
			}
			return nil, p.fail(msg, http.StatusInternalServerError)
		}
		if out.res == nil {
			return nil, p.fail("Feature returned no result", http.StatusInternalServerError)
		}
		return out.res, nil
	}
}

// panicError marks a recovered handler panic so its content never reaches
// the envelope.
type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}

func (p *Pipeline) fail(reason string, status int) *Outcome {
	return &Outcome{
		Status: status,
		State:  StateFailed,
		Envelope: Envelope{
			Success:   false,
			Error:     reason,
			FeatureID: p.manifest.ID,
			Version:   p.manifest.Version,
			Metadata:  newMetadata(),
		},
	}
}

func (p *Pipeline) observe(out *Outcome) *Outcome {
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.ObserveRequest(p.manifest.ID, strconv.Itoa(out.Status))
	}
	return out
}
