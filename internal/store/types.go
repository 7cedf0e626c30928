package store

import "time"

// Job statuses
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
)

// Application stages, in pipeline order
const (
	StageNew                = "new"
	StageClassified         = "classified"
	StageMatched            = "matched"
	StageInterviewLinkSent  = "interview_link_sent"
	StageScreeningScheduled = "screening_scheduled"
	StageScreened           = "screened"
	StageShortlisted        = "shortlisted"
	StageRejected           = "rejected"
)

// Email processing ladder. Values only move up.
const (
	EmailNew          = 0
	EmailClassified   = 1
	EmailMaterialized = 2
)

// Interview link statuses
const (
	LinkStatusGenerated          = "generated"
	LinkStatusSent               = "sent"
	LinkStatusOpened             = "opened"
	LinkStatusInterviewStarted   = "interview_started"
	LinkStatusInterviewCompleted = "interview_completed"
	LinkStatusExpired            = "expired"
)

// Screening statuses on the application
const (
	ScreeningPending    = "pending"
	ScreeningInProgress = "in_progress"
	ScreeningCompleted  = "completed"
)

// Job is an open position candidates apply to
type Job struct {
	ID                   string    `json:"id"`
	Code                 string    `json:"code"`
	Title                string    `json:"title"`
	Department           string    `json:"department"`
	Location             string    `json:"location"`
	Description          string    `json:"description"`
	MustHaveSkills       []string  `json:"must_have_skills"`
	NiceToHaveSkills     []string  `json:"nice_to_have_skills"`
	Status               string    `json:"status"`
	ResumeThresholdMin   *float64  `json:"resume_threshold_min,omitempty"`
	InterviewThresholdMin *float64 `json:"interview_threshold_min,omitempty"`
	FinalThresholdReject *float64  `json:"final_threshold_reject,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Candidate is a person materialized from an application email or created manually
type Candidate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Source    string    `json:"source"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is the metadata kept for an email attachment
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Content     string `json:"content,omitempty"` // base64, resumes only
}

// Email is an inbound message pulled from the watched mailbox
type Email struct {
	ID             string       `json:"id"`
	MessageID      string       `json:"message_id"`
	UID            uint32       `json:"uid"`
	FromAddress    string       `json:"from_address"`
	FromName       string       `json:"from_name,omitempty"`
	Subject        string       `json:"subject"`
	BodyText       string       `json:"body_text"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	ReceivedAt     time.Time    `json:"received_at"`
	Classification string       `json:"classification,omitempty"`
	Confidence     float64      `json:"classification_confidence,omitempty"`
	Processed      int          `json:"processed"`
	CandidateID    string       `json:"candidate_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Application joins one candidate to one job. The (candidate, job)
// pair is unique.
type Application struct {
	ID                    string     `json:"id"`
	CandidateID           string     `json:"candidate_id"`
	JobID                 string     `json:"job_id"`
	Stage                 string     `json:"stage"`
	ResumeScore           *float64   `json:"resume_score,omitempty"`
	ResumeScoreJSON       string     `json:"resume_score_json,omitempty"`
	InterviewScore        *float64   `json:"interview_score,omitempty"`
	InterviewScoreJSON    string     `json:"interview_score_json,omitempty"`
	ScreeningTranscript   string     `json:"screening_transcript,omitempty"`
	ScreeningStatus       string     `json:"screening_status"`
	InterviewLinkStatus   string     `json:"interview_link_status,omitempty"`
	FaceTrackingJSON      string     `json:"interview_face_tracking_json,omitempty"`
	FinalScore            *float64   `json:"final_score,omitempty"`
	FinalSummary          string     `json:"final_summary,omitempty"`
	EmailDraftSent        bool       `json:"email_draft_sent"`
	ScheduledInterviewAt  *time.Time `json:"scheduled_interview_at,omitempty"`
	ScheduledSlot         string     `json:"scheduled_interview_slot,omitempty"`
	SourceEmailID         string     `json:"source_email_id,omitempty"`
	NextAction            string     `json:"ai_next_action,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// InterviewLink is a single-use tokenized interview URL.
// Round 1 is the automated voice screening; round 2 is the
// interview room issued when a slot is booked.
type InterviewLink struct {
	ID                  string     `json:"id"`
	Token               string     `json:"token"`
	ApplicationID       string     `json:"application_id"`
	Round               int        `json:"round"`
	Status              string     `json:"status"`
	VoiceConversationID string     `json:"voice_conversation_id,omitempty"`
	FaceTrackingJSON    string     `json:"face_tracking_json,omitempty"`
	ExpiresAt           time.Time  `json:"expires_at"`
	CreatedAt           time.Time  `json:"created_at"`
	SentAt              *time.Time `json:"sent_at,omitempty"`
	OpenedAt            *time.Time `json:"opened_at,omitempty"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the link still accepts candidate actions
func (l *InterviewLink) Active(now time.Time) bool {
	switch l.Status {
	case LinkStatusInterviewCompleted, LinkStatusExpired:
		return false
	}
	return now.Before(l.ExpiresAt)
}

// Event is an append-only audit record
type Event struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	EventType  string    `json:"event_type"`
	Payload    string    `json:"payload,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApplicationFilter narrows ListApplications
type ApplicationFilter struct {
	JobID       string
	CandidateID string
	Stage       string
	SortBy      string // "created_at", "resume_score", "final_score"
	SortDesc    bool
	Limit       int
	Offset      int
}
