package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

const meetingColumns = `id, request_id, approver_id, requester_id, room, scheduled_at, description, created_at, updated_at`

type MeetingRepository struct {
	db *sql.DB
}

func NewMeetingRepository(db *sql.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

func (r *MeetingRepository) Create(ctx context.Context, meeting *domain.ClearanceMeeting) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO clearance_meetings (`+meetingColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		meeting.ID, meeting.RequestID, meeting.ApproverID, meeting.RequesterID, meeting.Room,
		meeting.ScheduledAt, meeting.Description, meeting.CreatedAt, meeting.UpdatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isViolation(err, pgUniqueViolation, constraintMeetingRequest):
		return domain.WrapError(domain.ErrInvalidState, "create clearance meeting", fmt.Errorf("request %s already has a clearance meeting", meeting.RequestID))
	case isViolation(err, pgForeignKeyViolation, constraintMeetingRequestFK):
		return domain.WrapError(domain.ErrNotFound, "create clearance meeting", fmt.Errorf("request %s", meeting.RequestID))
	default:
		return fmt.Errorf("insert clearance meeting: %w", err)
	}
}

func (r *MeetingRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.ClearanceMeeting, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT `+meetingColumns+`
FROM clearance_meetings
WHERE request_id = $1
`, requestID)
	meeting, err := scanMeeting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get clearance meeting", fmt.Errorf("request %s has no clearance meeting", requestID))
		}
		return nil, fmt.Errorf("get clearance meeting: %w", err)
	}
	return &meeting, nil
}

func (r *MeetingRepository) Update(ctx context.Context, meeting *domain.ClearanceMeeting) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE clearance_meetings
SET room = $2, scheduled_at = $3, description = $4, updated_at = $5
WHERE request_id = $1
`, meeting.RequestID, meeting.Room, meeting.ScheduledAt, meeting.Description, meeting.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update clearance meeting: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update clearance meeting rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update clearance meeting", fmt.Errorf("request %s has no clearance meeting", meeting.RequestID))
	}
	return nil
}

func (r *MeetingRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.ClearanceMeeting, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
SELECT `+meetingColumns+`
FROM clearance_meetings
WHERE approver_id = $1 OR requester_id = $1
ORDER BY scheduled_at
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list clearance meetings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ClearanceMeeting, 0)
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clearance meeting: %w", err)
		}
		out = append(out, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clearance meetings: %w", err)
	}
	return out, nil
}

func scanMeeting(row rowScanner) (domain.ClearanceMeeting, error) {
	var m domain.ClearanceMeeting
	err := row.Scan(
		&m.ID,
		&m.RequestID,
		&m.ApproverID,
		&m.RequesterID,
		&m.Room,
		&m.ScheduledAt,
		&m.Description,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}
