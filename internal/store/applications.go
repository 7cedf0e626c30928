package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateApplication inserts an application. The (candidate, job) pair
// is unique; a duplicate returns ErrConflict.
func (s *Store) CreateApplication(ctx context.Context, a *Application) error {
	if a.CandidateID == "" || a.JobID == "" {
		return fmt.Errorf("%w: candidate_id and job_id are required", ErrInvalid)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Stage == "" {
		a.Stage = StageNew
	}
	if a.ScreeningStatus == "" {
		a.ScreeningStatus = ScreeningPending
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, candidate_id, job_id, stage,
			resume_score, resume_score_json, interview_score, interview_score_json,
			screening_transcript, screening_status, interview_link_status,
			interview_face_tracking_json, final_score, final_summary,
			email_draft_sent, scheduled_interview_at, scheduled_interview_slot,
			source_email_id, ai_next_action, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CandidateID, a.JobID, a.Stage,
		a.ResumeScore, a.ResumeScoreJSON, a.InterviewScore, a.InterviewScoreJSON,
		a.ScreeningTranscript, a.ScreeningStatus, a.InterviewLinkStatus,
		a.FaceTrackingJSON, a.FinalScore, a.FinalSummary,
		boolToInt(a.EmailDraftSent), a.ScheduledInterviewAt, a.ScheduledSlot,
		nullString(a.SourceEmailID), a.NextAction, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: application already exists for this candidate and job", ErrConflict)
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// GetApplication returns an application by ID
func (s *Store) GetApplication(ctx context.Context, id string) (*Application, error) {
	a, err := s.scanApplication(s.db.QueryRowContext(ctx, applicationSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

// GetApplicationByPair returns the application for a candidate/job pair, or nil
func (s *Store) GetApplicationByPair(ctx context.Context, candidateID, jobID string) (*Application, error) {
	a, err := s.scanApplication(s.db.QueryRowContext(ctx,
		applicationSelect+` WHERE candidate_id = ? AND job_id = ?`, candidateID, jobID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// ListApplications returns applications matching the filter
func (s *Store) ListApplications(ctx context.Context, f ApplicationFilter) ([]*Application, error) {
	query := applicationSelect
	var where []string
	var args []interface{}
	if f.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, f.JobID)
	}
	if f.CandidateID != "" {
		where = append(where, "candidate_id = ?")
		args = append(args, f.CandidateID)
	}
	if f.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, f.Stage)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}

	sortCol := "created_at"
	switch f.SortBy {
	case "resume_score", "final_score", "updated_at", "created_at", "":
		if f.SortBy != "" {
			sortCol = f.SortBy
		}
	default:
		return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalid, f.SortBy)
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortCol, dir)

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		a, err := s.scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateApplicationStage moves the application to a new stage
func (s *Store) UpdateApplicationStage(ctx context.Context, id, stage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET stage = ?, updated_at = ? WHERE id = ?`,
		stage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveApplication rewrites every mutable field. Callers hold the
// per-application lock when the update depends on prior state.
func (s *Store) SaveApplication(ctx context.Context, a *Application) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications SET stage = ?,
			resume_score = ?, resume_score_json = ?,
			interview_score = ?, interview_score_json = ?,
			screening_transcript = ?, screening_status = ?,
			interview_link_status = ?, interview_face_tracking_json = ?,
			final_score = ?, final_summary = ?, email_draft_sent = ?,
			scheduled_interview_at = ?, scheduled_interview_slot = ?,
			ai_next_action = ?, updated_at = ?
		WHERE id = ?`,
		a.Stage,
		a.ResumeScore, a.ResumeScoreJSON,
		a.InterviewScore, a.InterviewScoreJSON,
		a.ScreeningTranscript, a.ScreeningStatus,
		a.InterviewLinkStatus, a.FaceTrackingJSON,
		a.FinalScore, a.FinalSummary, boolToInt(a.EmailDraftSent),
		a.ScheduledInterviewAt, a.ScheduledSlot,
		a.NextAction, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("save application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountApplicationsByStage returns stage -> count for the funnel report
func (s *Store) CountApplicationsByStage(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, COUNT(*) FROM applications GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("count by stage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		out[stage] = n
	}
	return out, rows.Err()
}

const applicationSelect = `
	SELECT id, candidate_id, job_id, stage,
		resume_score, resume_score_json, interview_score, interview_score_json,
		screening_transcript, screening_status, interview_link_status,
		interview_face_tracking_json, final_score, final_summary,
		email_draft_sent, scheduled_interview_at, scheduled_interview_slot,
		source_email_id, ai_next_action, created_at, updated_at
	FROM applications`

func (s *Store) scanApplication(row rowScanner) (*Application, error) {
	var a Application
	var sourceEmail sql.NullString
	var scheduledAt sql.NullTime
	var draftSent int
	err := row.Scan(&a.ID, &a.CandidateID, &a.JobID, &a.Stage,
		&a.ResumeScore, &a.ResumeScoreJSON, &a.InterviewScore, &a.InterviewScoreJSON,
		&a.ScreeningTranscript, &a.ScreeningStatus, &a.InterviewLinkStatus,
		&a.FaceTrackingJSON, &a.FinalScore, &a.FinalSummary,
		&draftSent, &scheduledAt, &a.ScheduledSlot,
		&sourceEmail, &a.NextAction, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.EmailDraftSent = draftSent != 0
	a.SourceEmailID = sourceEmail.String
	if scheduledAt.Valid {
		t := scheduledAt.Time
		a.ScheduledInterviewAt = &t
	}
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
