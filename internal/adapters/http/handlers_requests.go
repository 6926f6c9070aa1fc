package httpadapter

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type createRequestBody struct {
	DocumentType string `json:"document_type"`
}

type advanceStatusBody struct {
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason"`
}

func (rt *Router) createRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	var body createRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	req, err := rt.lifecycle.CreateRequest(r.Context(), caller, body.DocumentType)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (rt *Router) listRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	filter, err := parseRequestFilter(r.URL.Query())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	items, err := rt.lifecycle.GetRequestsFor(r.Context(), caller, filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.DocumentRequest]{Items: items})
}

func (rt *Router) getRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	req, err := rt.lifecycle.GetRequest(r.Context(), caller, chi.URLParam(r, "requestID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (rt *Router) advanceStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	var body advanceStatusBody
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	target := domain.DocumentStatus(strings.TrimSpace(body.Status))
	req, err := rt.lifecycle.AdvanceStatus(r.Context(), caller, chi.URLParam(r, "requestID"), target, body.CancelReason)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (rt *Router) withdrawRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	if err := rt.lifecycle.Withdraw(r.Context(), caller, chi.URLParam(r, "requestID")); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseRequestFilter(q url.Values) (domain.RequestFilter, error) {
	const op = "parse request filter"
	filter := domain.RequestFilter{
		DocumentType: strings.TrimSpace(q.Get("document_type")),
	}
	if raw := q.Get("document_status"); strings.TrimSpace(raw) != "" {
		status, err := domain.ParseDocumentStatus(raw)
		if err != nil {
			return domain.RequestFilter{}, err
		}
		filter.DocumentStatus = status
	}
	if raw := q.Get("clearance_status"); strings.TrimSpace(raw) != "" {
		status, err := domain.ParseClearanceStatus(raw)
		if err != nil {
			return domain.RequestFilter{}, err
		}
		filter.ClearanceStatus = status
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{
		{key: "created_from", dst: &filter.CreatedFrom},
		{key: "created_to", dst: &filter.CreatedTo},
	} {
		raw := strings.TrimSpace(q.Get(p.key))
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.RequestFilter{}, domain.NewError(domain.ErrValidation, op, p.key+" must be an RFC 3339 timestamp")
		}
		ts = ts.UTC()
		*p.dst = &ts
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return domain.RequestFilter{}, domain.NewError(domain.ErrValidation, op, "limit must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
