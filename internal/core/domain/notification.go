package domain

import "time"

type NotificationKind string

const (
	NotifyRequestReady         NotificationKind = "request.ready-to-pickup"
	NotifyRequestCancelled     NotificationKind = "request.cancelled"
	NotifyClearanceScheduled   NotificationKind = "clearance.scheduled"
	NotifyClearanceRescheduled NotificationKind = "clearance.rescheduled"
	NotifyClearanceCompleted   NotificationKind = "clearance.completed"
)

type Notification struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Kind         NotificationKind  `json:"kind"`
	RequestID    string            `json:"request_id"`
	DocumentType string            `json:"document_type"`
	Fields       map[string]string `json:"fields,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// StatusNotification builds the requester notice for a status change, if any.
func StatusNotification(id string, req *DocumentRequest, now time.Time) (Notification, bool) {
	var kind NotificationKind
	fields := map[string]string{}
	switch req.DocumentStatus {
	case StatusReadyToPickup:
		kind = NotifyRequestReady
	case StatusCancelled:
		kind = NotifyRequestCancelled
		fields["cancel_reason"] = req.CancelReason
	default:
		return Notification{}, false
	}
	return Notification{
		ID:           id,
		UserID:       req.RequestedBy,
		Kind:         kind,
		RequestID:    req.ID,
		DocumentType: req.DocumentType,
		Fields:       fields,
		CreatedAt:    now,
	}, true
}

// MeetingNotification builds the requester notice for a clearance event.
func MeetingNotification(id string, kind NotificationKind, req *DocumentRequest, meeting *ClearanceMeeting, now time.Time) Notification {
	fields := map[string]string{}
	if meeting != nil {
		fields["room"] = meeting.Room
		fields["scheduled_at"] = meeting.ScheduledAt.Format(time.RFC3339)
		if meeting.Description != "" {
			fields["description"] = meeting.Description
		}
	}
	return Notification{
		ID:           id,
		UserID:       req.RequestedBy,
		Kind:         kind,
		RequestID:    req.ID,
		DocumentType: req.DocumentType,
		Fields:       fields,
		CreatedAt:    now,
	}
}
