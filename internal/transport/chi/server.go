package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/syncdex/internal/domain"
	"github.com/kailas-cloud/syncdex/internal/domain/search/query"
	"github.com/kailas-cloud/syncdex/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/syncdex/internal/logger"
	gen "github.com/kailas-cloud/syncdex/internal/transport/generated"
	batchuc "github.com/kailas-cloud/syncdex/internal/usecase/batch"
	collectionuc "github.com/kailas-cloud/syncdex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/syncdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/syncdex/internal/usecase/search"
)

// maxBodyBytes bounds a search request body.
const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements generated.ServerInterface for the oapi-codegen chi router.
type Server struct {
	gen.Unimplemented

	search        *searchuc.Service
	collections   *collectionuc.Service
	batch         *batchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. batch can be nil when no document
// store is configured; the sync route then answers 501.
func NewServer(
	search *searchuc.Service,
	collections *collectionuc.Service,
	batch *batchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:      search,
		collections: collections,
		batch:       batch,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownCollection, http.StatusNotFound, gen.ErrorResponseCodeUnknownCollection),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, gen.ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrUnsupportedClause, http.StatusBadRequest, gen.ErrorResponseCodeUnsupportedClause),
		sentinelHandler(domain.ErrMappingMismatch, http.StatusBadRequest, gen.ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, gen.ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, gen.ErrorResponseCodeBadEngineResponse),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, gen.ErrorResponseCodeTimeout),
		sentinelHandler(domain.ErrClosed, http.StatusServiceUnavailable, gen.ErrorResponseCodeShuttingDown),
		sentinelHandler(domain.ErrRetryExhausted, http.StatusServiceUnavailable, gen.ErrorResponseCodeEngineUnavailable),
		sentinelHandler(domain.ErrConnection, http.StatusServiceUnavailable, gen.ErrorResponseCodeEngineUnavailable),
		sentinelHandler(domain.ErrTransient, http.StatusServiceUnavailable, gen.ErrorResponseCodeEngineUnavailable),
	}
	return s
}

var _ gen.ServerInterface = (*Server)(nil)

// SearchCollection handles POST /v1/collections/{collection}/search.
func (s *Server) SearchCollection(w http.ResponseWriter, r *http.Request, collection gen.CollectionName) {
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}
	res, err := s.search.Search(r.Context(), collection, req)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSearchResponse(res))
}

// SearchIndex handles POST /v1/indexes/{index}/search.
func (s *Server) SearchIndex(w http.ResponseWriter, r *http.Request, index gen.IndexName) {
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}
	res, err := s.search.SearchIndex(r.Context(), index, req)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSearchResponse(res))
}

func (s *Server) decodeSearch(w http.ResponseWriter, r *http.Request) (query.Request, bool) {
	var body gen.SearchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return query.Request{}, false
	}
	req, err := ParseSearchRequest(body)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return query.Request{}, false
	}
	return req, true
}

// ParseSearchRequest validates a JSON search body into an engine request.
// A missing query matches every document and a missing size asks for
// query.DefaultSize hits.
func ParseSearchRequest(body gen.SearchRequest) (query.Request, error) {
	var q query.Clause = query.MatchAll{}
	if isPresent(body.Query) {
		parsed, err := query.ParseJSON(body.Query)
		if err != nil {
			return query.Request{}, err
		}
		q = parsed
	}

	var sort []query.SortField
	if isPresent(body.Sort) {
		parsed, err := query.NormalizeSort(body.Sort)
		if err != nil {
			return query.Request{}, err
		}
		sort = parsed
	}

	var aggs map[string]query.Aggregation
	if isPresent(body.Aggs) {
		dec := json.NewDecoder(bytes.NewReader(body.Aggs))
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return query.Request{}, errors.Join(domain.ErrValidation, err)
		}
		parsed, err := query.ParseAggs(raw)
		if err != nil {
			return query.Request{}, err
		}
		aggs = parsed
	}

	from, size := 0, query.DefaultSize
	if body.From != nil {
		from = *body.From
	}
	if body.Size != nil {
		size = *body.Size
	}
	return query.NewRequest(q, sort, aggs, from, size)
}

func isPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ListCollections handles GET /v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	items := make([]gen.CollectionStatus, len(statuses))
	for i, st := range statuses {
		items[i] = gen.CollectionStatus{Collection: st.Collection, Index: st.Index, Exists: st.Exists}
	}
	writeJSON(w, http.StatusOK, gen.CollectionList{Items: items})
}

// EnsureIndex handles POST /v1/collections/{collection}/ensure.
func (s *Server) EnsureIndex(w http.ResponseWriter, r *http.Request, collection gen.CollectionName) {
	s.indexAction(w, r, collection, s.collections.Ensure)
}

// RecreateIndex handles POST /v1/collections/{collection}/recreate.
func (s *Server) RecreateIndex(w http.ResponseWriter, r *http.Request, collection gen.CollectionName) {
	s.indexAction(w, r, collection, s.collections.Recreate)
}

// DropIndex handles DELETE /v1/collections/{collection}/index.
func (s *Server) DropIndex(w http.ResponseWriter, r *http.Request, collection gen.CollectionName) {
	if err := s.collections.Drop(r.Context(), collection); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) indexAction(
	w http.ResponseWriter, r *http.Request, collection string, action func(context.Context, string) error,
) {
	if err := action(r.Context(), collection); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	def, err := s.collections.Definition(collection)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, gen.CollectionStatus{Collection: collection, Index: def.Name, Exists: true})
}

// Synchronize handles POST /v1/collections/{collection}/sync[?truncate=true].
func (s *Server) Synchronize(
	w http.ResponseWriter, r *http.Request, collection gen.CollectionName, params gen.SynchronizeParams,
) {
	if s.batch == nil {
		writeError(w, http.StatusNotImplemented, gen.ErrorResponseCodeSyncNotConfigured, "no document store configured")
		return
	}
	var opts batchuc.Options
	if params.Truncate != nil {
		opts.Truncate = *params.Truncate
	}

	rep, err := s.batch.Synchronize(r.Context(), collection, opts)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	resp := gen.SyncResponse{
		Collection: rep.Collection,
		Batches:    rep.Batches,
		Indexed:    rep.Indexed,
		Failed:     rep.Failed,
	}
	if len(rep.Failures) > 0 {
		failures := make([]gen.SyncFailure, len(rep.Failures))
		for i, f := range rep.Failures {
			failures[i] = gen.SyncFailure{Id: f.ID(), Error: safeDomainMessage(f.Err()), Attempts: f.Attempts()}
		}
		resp.Failures = &failures
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]gen.CheckStatus, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = gen.CheckStatus(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, gen.HealthResponse{Status: gen.HealthResponseStatus(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code gen.ErrorResponseCode, message string) {
	writeJSON(w, status, gen.ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message. Validation errors are
// the caller's own input and are echoed in full; everything else is reduced
// to its sentinel so engine internals do not leak.
func safeDomainMessage(err error) string {
	clientErrors := []error{
		domain.ErrUnknownCollection,
		domain.ErrUnsupportedClause,
		domain.ErrMappingMismatch,
		domain.ErrValidation,
	}
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrMalformedResponse,
		domain.ErrRetryExhausted,
		domain.ErrConnection,
		domain.ErrTransient,
		domain.ErrClosed,
		domain.ErrDropped,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code gen.ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := s.logger
	if l, ok := logpkg.Lookup(ctx); ok {
		log = l
	}
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, gen.ErrorResponseCodeInternalError, "internal error")
}

// NewSearchResponse renders a projected result as its JSON response.
func NewSearchResponse(res result.SearchResult) gen.SearchResponse {
	hits := make([]gen.Hit, len(res.Hits()))
	for i, h := range res.Hits() {
		hits[i] = gen.Hit{Id: h.ID(), Index: h.Index(), Score: h.Score(), Source: h.Source()}
		if sv := h.SortValues(); len(sv) > 0 {
			hits[i].Sort = &sv
		}
	}
	resp := gen.SearchResponse{
		Total:    res.Total(),
		MaxScore: res.MaxScore(),
		Took:     res.Took(),
		Hits:     hits,
	}
	if rel := res.TotalRelation(); rel != "" {
		resp.TotalRelation = &rel
	}
	if aggs := res.Aggregations(); len(aggs) > 0 {
		out := make(map[string]gen.AggregationResult, len(aggs))
		for name, a := range aggs {
			if !a.IsBucket() {
				out[name] = gen.AggregationResult{Value: a.Value()}
				continue
			}
			buckets := make([]gen.Bucket, len(a.Buckets()))
			for i, b := range a.Buckets() {
				buckets[i] = gen.Bucket{Key: b.Key, DocCount: b.DocCount}
				if b.KeyAsString != "" {
					kas := b.KeyAsString
					buckets[i].KeyAsString = &kas
				}
			}
			out[name] = gen.AggregationResult{Buckets: &buckets}
		}
		resp.Aggregations = &out
	}
	return resp
}
