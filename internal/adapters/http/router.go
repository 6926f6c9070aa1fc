// Package httpadapter exposes the document request workflow over HTTP.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/document-requests/internal/config"
	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
	"github.com/kirillkom/document-requests/internal/observability/metrics"
)

const maxBodyBytes = 1 << 20

// Services are the inbound ports the router dispatches to.
type Services struct {
	Catalog   ports.DocumentCatalog
	Lifecycle ports.RequestLifecycle
	Clearance ports.ClearanceWorkflow
	Identity  ports.IdentityProvider
}

type Router struct {
	catalog   ports.DocumentCatalog
	lifecycle ports.RequestLifecycle
	clearance ports.ClearanceWorkflow
	identity  ports.IdentityProvider
	metrics   *metrics.HTTPServerMetrics
	validator *requestValidator

	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

// NewRouter wires handlers to services. metrics may be nil.
func NewRouter(cfg config.Config, svc Services, httpMetrics *metrics.HTTPServerMetrics) (*Router, error) {
	if svc.Catalog == nil || svc.Lifecycle == nil || svc.Clearance == nil || svc.Identity == nil {
		return nil, errors.New("http router: catalog, lifecycle, clearance and identity services are required")
	}
	rt := &Router{
		catalog:          svc.Catalog,
		lifecycle:        svc.Lifecycle,
		clearance:        svc.Clearance,
		identity:         svc.Identity,
		metrics:          httpMetrics,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: cfg.APIBackpressureWait,
	}
	if cfg.OpenAPIValidation {
		validator, err := newRequestValidator(context.Background())
		if err != nil {
			return nil, err
		}
		rt.validator = validator
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverMiddleware, requestIDMiddleware, accessLogMiddleware)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.writeError(w, r, domain.NewError(domain.ErrNotFound, "route", fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Kind: "method_not_allowed"})
	})
	r.Get("/healthz", rt.healthz)

	var onReject, onShed func()
	if rt.metrics != nil {
		onReject, onShed = rt.metrics.RecordRateLimited, rt.metrics.RecordShed
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.rateLimitRPS, rt.rateLimitBurst, onReject)
		})
		v1.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.maxInFlight, rt.backpressureWait, onShed)
		})
		v1.Use(rt.authenticate)
		if rt.validator != nil {
			v1.Use(rt.validator.middleware(rt.writeError))
		}

		v1.Route("/document-types", func(dt chi.Router) {
			dt.Get("/", rt.listDocumentTypes)
			dt.Post("/", rt.createDocumentType)
			dt.Get("/{documentType}", rt.lookupDocumentType)
			dt.Delete("/{documentType}", rt.deactivateDocumentType)
		})

		v1.Route("/requests", func(rq chi.Router) {
			rq.Get("/", rt.listRequests)
			rq.Post("/", rt.createRequest)
			rq.Route("/{requestID}", func(one chi.Router) {
				one.Get("/", rt.getRequest)
				one.Delete("/", rt.withdrawRequest)
				one.Patch("/status", rt.advanceStatus)
				one.Get("/clearance", rt.getClearanceMeeting)
				one.Post("/clearance", rt.scheduleClearance)
				one.Patch("/clearance", rt.rescheduleClearance)
				one.Post("/clearance/complete", rt.completeClearance)
			})
		})

		v1.Get("/clearance-meetings/mine", rt.listMyMeetings)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// mustCaller returns the identity set by authenticate.
func (rt *Router) mustCaller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		rt.writeError(w, r, domain.NewError(domain.ErrUnauthorized, "resolve caller", "caller identity is missing"))
		return domain.Identity{}, false
	}
	return caller, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewError(domain.ErrValidation, "decode request body", "request body is required")
		}
		return domain.WrapError(domain.ErrValidation, "decode request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}
