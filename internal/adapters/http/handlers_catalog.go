package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

func (rt *Router) listDocumentTypes(w http.ResponseWriter, r *http.Request) {
	entries, err := rt.catalog.ListActive(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.DocumentType]{Items: entries})
}

func (rt *Router) lookupDocumentType(w http.ResponseWriter, r *http.Request) {
	entry, err := rt.catalog.LookupActive(r.Context(), chi.URLParam(r, "documentType"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) createDocumentType(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	var input domain.DocumentTypeInput
	if err := decodeJSON(w, r, &input); err != nil {
		rt.writeError(w, r, err)
		return
	}
	entry, err := rt.catalog.Create(r.Context(), caller, input)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// deactivateDocumentType addresses the entry by id; lookups use the name.
func (rt *Router) deactivateDocumentType(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	entry, err := rt.catalog.Deactivate(r.Context(), caller, chi.URLParam(r, "documentType"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
