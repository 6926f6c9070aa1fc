package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type scheduleClearanceBody struct {
	Room        string    `json:"room"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Description string    `json:"description"`
}

type rescheduleClearanceBody struct {
	Room        *string    `json:"room"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Description *string    `json:"description"`
}

func (rt *Router) scheduleClearance(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	var body scheduleClearanceBody
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	meeting, err := rt.clearance.ScheduleClearance(r.Context(), caller, chi.URLParam(r, "requestID"), body.Room, body.ScheduledAt, body.Description)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

func (rt *Router) rescheduleClearance(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	var body rescheduleClearanceBody
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	patch := domain.MeetingPatch{Room: body.Room, ScheduledAt: body.ScheduledAt, Description: body.Description}
	meeting, err := rt.clearance.RescheduleClearance(r.Context(), caller, chi.URLParam(r, "requestID"), patch)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (rt *Router) completeClearance(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	req, err := rt.clearance.CompleteClearance(r.Context(), caller, chi.URLParam(r, "requestID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (rt *Router) getClearanceMeeting(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	meeting, err := rt.clearance.GetMeeting(r.Context(), caller, chi.URLParam(r, "requestID"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (rt *Router) listMyMeetings(w http.ResponseWriter, r *http.Request) {
	caller, ok := rt.mustCaller(w, r)
	if !ok {
		return
	}
	meetings, err := rt.clearance.ListMyMeetings(r.Context(), caller)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.ClearanceMeeting]{Items: meetings})
}
