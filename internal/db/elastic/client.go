package elastic

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

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kailas-cloud/syncdex/internal/db"
	"github.com/kailas-cloud/syncdex/internal/metrics"
)

// Compile-time check: Engine implements db.Engine.
var _ db.Engine = (*Engine)(nil)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 20

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	URL      string
	Username string
	Password string
	// Timeout bounds every single call; zero means only the caller's context applies.
	Timeout time.Duration
	// Transport overrides the HTTP transport; nil uses a clone of http.DefaultTransport.
	Transport http.RoundTripper
}

// Engine implements db.Engine on the go-elasticsearch typed API.
type Engine struct {
	es        *elasticsearch.Client
	transport http.RoundTripper
	timeout   time.Duration
	tracer    trace.Tracer
}

// NewEngine creates an Elasticsearch engine client. Retries are disabled in
// the client; the sync engine owns retry policy.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("url scheme must be http or https, got %q", base.Scheme)
	}
	tr := cfg.Transport
	if tr == nil {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{base.String()},
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    tr,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &Engine{
		es:        es,
		transport: tr,
		timeout:   cfg.Timeout,
		tracer:    otel.Tracer("github.com/kailas-cloud/syncdex/internal/db/elastic"),
	}, nil
}

// Ping checks cluster connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	status, body, err := e.do(ctx, db.OpPing, "", esapi.InfoRequest{})
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("ping: %w", errorFrom(db.OpPing, "", status, body))
	}
	return nil
}

// Close releases idle connections.
func (e *Engine) Close() {
	if t, ok := e.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (e *Engine) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := e.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for engine: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// request is any esapi request value.
type request interface {
	Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error)
}

// do sends one request and returns status and body. Transport failures come
// back as *db.Error wrapping db.ErrConnection or db.ErrTimeout; HTTP error
// statuses are left to the caller.
func (e *Engine) do(ctx context.Context, op, index string, req request) (int, []byte, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "engine."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "elasticsearch"),
			attribute.String("db.operation", op),
			attribute.String("db.index", index),
		))
	defer span.End()

	start := time.Now()
	status, respBody, err := e.roundTrip(ctx, req)
	metrics.EngineRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EngineRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		sentinel := db.ErrConnection
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			sentinel = db.ErrTimeout
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, sentinel.Error())
		return 0, nil, &db.Error{Op: op, Index: index, Reason: err.Error(), Err: sentinel}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= 500 {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	metrics.EngineRequestsTotal.WithLabelValues(op, metrics.StatusClass(status)).Inc()
	return status, respBody, nil
}

func (e *Engine) roundTrip(ctx context.Context, req request) (int, []byte, error) {
	res, err := req.Do(ctx, e.es)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, data, nil
}

// encode renders payload as a JSON request body.
func encode(op, index string, payload any) (io.Reader, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &db.Error{Op: op, Index: index, Reason: "encode request", Err: fmt.Errorf("%w: %v", db.ErrMalformedRequest, err)}
	}
	return bytes.NewReader(body), nil
}

// engineError is the error envelope the engine returns on failures.
type engineError struct {
	Error struct {
		Type     string `json:"type"`
		Reason   string `json:"reason"`
		CausedBy *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"caused_by"`
	} `json:"error"`
	Status int    `json:"status"`
	Result string `json:"result"`
}

// errorFrom builds a *db.Error from a non-2xx response.
func errorFrom(op, index string, status int, body []byte) error {
	var ee engineError
	_ = json.Unmarshal(body, &ee)

	reason := ee.Error.Reason
	if ee.Error.CausedBy != nil && ee.Error.CausedBy.Reason != "" {
		reason += " (caused by " + ee.Error.CausedBy.Type + ": " + ee.Error.CausedBy.Reason + ")"
	}
	if reason == "" && ee.Result == "" && len(body) > 0 && len(body) < 512 {
		reason = strings.TrimSpace(string(body))
	}

	return &db.Error{
		Op:     op,
		Index:  index,
		Status: status,
		Type:   ee.Error.Type,
		Reason: reason,
		Err:    classify(status, ee.Error.Type),
	}
}

func classify(status int, errType string) error {
	switch errType {
	case "index_not_found_exception":
		return db.ErrIndexNotFound
	case "es_rejected_execution_exception", "circuit_breaking_exception", "cluster_block_exception":
		return db.ErrTransient
	case "mapper_parsing_exception", "document_parsing_exception", "illegal_argument_exception",
		"version_conflict_engine_exception", "strict_dynamic_mapping_exception":
		return db.ErrRejected
	}
	if err := db.ClassifyStatus(status); err != nil {
		return err
	}
	return db.ErrRejected
}
