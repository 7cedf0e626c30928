package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateJob inserts a job, minting its ID and human code
// (JOB-YYYY-NNN, numbered within the creation year).
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job.Title == "" {
		return fmt.Errorf("%w: job title is required", ErrInvalid)
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = JobStatusOpen
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	if job.Code == "" {
		year := now.Year()
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM jobs WHERE code LIKE ?`,
			fmt.Sprintf("JOB-%d-%%", year)).Scan(&n)
		if err != nil {
			return fmt.Errorf("count jobs: %w", err)
		}
		job.Code = fmt.Sprintf("JOB-%d-%03d", year, n+1)
	}

	must, _ := json.Marshal(job.MustHaveSkills)
	nice, _ := json.Marshal(job.NiceToHaveSkills)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, code, title, department, location, description,
			must_have_skills, nice_to_have_skills, status,
			resume_threshold_min, interview_threshold_min, final_threshold_reject,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Code, job.Title, job.Department, job.Location, job.Description,
		string(must), string(nice), job.Status,
		job.ResumeThresholdMin, job.InterviewThresholdMin, job.FinalThresholdReject,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: job code %s already exists", ErrConflict, job.Code)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID, or ErrNotFound
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.scanJob(s.db.QueryRowContext(ctx, `
		SELECT id, code, title, department, location, description,
			must_have_skills, nice_to_have_skills, status,
			resume_threshold_min, interview_threshold_min, final_threshold_reject,
			created_at, updated_at
		FROM jobs WHERE id = ?`, id))
}

// ListJobs returns jobs, optionally filtered by status
func (s *Store) ListJobs(ctx context.Context, status string) ([]*Job, error) {
	query := `
		SELECT id, code, title, department, location, description,
			must_have_skills, nice_to_have_skills, status,
			resume_threshold_min, interview_threshold_min, final_threshold_reject,
			created_at, updated_at
		FROM jobs`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJob rewrites the mutable fields of a job
func (s *Store) UpdateJob(ctx context.Context, job *Job) error {
	must, _ := json.Marshal(job.MustHaveSkills)
	nice, _ := json.Marshal(job.NiceToHaveSkills)
	job.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET title = ?, department = ?, location = ?, description = ?,
			must_have_skills = ?, nice_to_have_skills = ?, status = ?,
			resume_threshold_min = ?, interview_threshold_min = ?, final_threshold_reject = ?,
			updated_at = ?
		WHERE id = ?`,
		job.Title, job.Department, job.Location, job.Description,
		string(must), string(nice), job.Status,
		job.ResumeThresholdMin, job.InterviewThresholdMin, job.FinalThresholdReject,
		job.UpdatedAt, job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJob removes a job that has no applications
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE job_id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("count applications: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: job has %d applications", ErrConflict, n)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanJob(row rowScanner) (*Job, error) {
	var job Job
	var must, nice string
	err := row.Scan(&job.ID, &job.Code, &job.Title, &job.Department, &job.Location,
		&job.Description, &must, &nice, &job.Status,
		&job.ResumeThresholdMin, &job.InterviewThresholdMin, &job.FinalThresholdReject,
		&job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	json.Unmarshal([]byte(must), &job.MustHaveSkills)
	json.Unmarshal([]byte(nice), &job.NiceToHaveSkills)
	return &job, nil
}
