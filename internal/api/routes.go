package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the full route tree: the operator API under
// /api/v1, the candidate endpoints under /public, and the webhook.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Post("/", h.CreateJob)
			r.Post("/generate", h.GenerateJobDescription)
			r.Get("/{id}", h.GetJob)
			r.Put("/{id}", h.UpdateJob)
			r.Delete("/{id}", h.DeleteJob)
		})

		r.Route("/candidates", func(r chi.Router) {
			r.Get("/", h.ListCandidates)
			r.Post("/", h.CreateCandidate)
			r.Get("/{id}", h.GetCandidate)
			r.Put("/{id}/notes", h.UpdateCandidateNotes)
		})

		r.Route("/applications", func(r chi.Router) {
			r.Get("/", h.ListApplications)
			r.Post("/", h.CreateApplication)
			r.Get("/export", h.ExportApplications)
			r.Post("/bulk-stage", h.BulkUpdateStage)
			r.Get("/{id}", h.GetApplication)
			r.Put("/{id}/stage", h.UpdateApplicationStage)
		})

		r.Route("/inbox", func(r chi.Router) {
			r.Get("/emails", h.ListEmails)
			r.Get("/emails/{id}", h.GetEmail)
			r.Post("/emails/{id}/process", h.ProcessEmail)
			r.Post("/process-pending", h.ProcessPendingEmails)
		})

		r.Route("/screening/{id}", func(r chi.Router) {
			r.Post("/link", h.GenerateInterviewLink)
			r.Post("/send-link", h.SendInterviewLink)
			r.Get("/links", h.ListInterviewLinks)
			r.Get("/status", h.ScreeningStatus)
			r.Post("/transcript", h.InstallTranscript)
			r.Post("/decide", h.RunDecision)
			r.Post("/final-score", h.CalculateFinalScore)
			r.Post("/book-slot", h.BookInterviewSlot)
			r.Post("/send-rejection", h.SendRejection)
			r.Post("/send-summary", h.SendSummaryDraft)
			r.Post("/send-email", h.SendCustomEmail)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/funnel", h.FunnelReport)
			r.Get("/top-candidates", h.TopCandidates)
			r.Get("/summary", h.PipelineSummary)
			r.Get("/activity", h.RecentActivity)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/agents", h.ListAgents)
			r.Get("/agents/{name}", h.GetAgent)
			r.Patch("/agents/{name}", h.UpdateAgent)
			r.Get("/usage", h.UsageReport)
			r.Get("/usage/logs", h.UsageLogs)
			r.Get("/config", h.ConfigEcho)
			r.Get("/env-check", h.EnvCheck)

			r.Route("/mailbox", func(r chi.Router) {
				r.Post("/connect", h.ConnectMailbox)
				r.Post("/disconnect", h.DisconnectMailbox)
				r.Get("/status", h.MailboxStatus)
				r.Post("/sync", h.SyncMailbox)
				r.Post("/listener/start", h.StartMailboxListener)
				r.Post("/listener/stop", h.StopMailboxListener)
			})
		})
	})

	// candidate-facing, token is the capability
	r.Route("/public/interview/{token}", func(r chi.Router) {
		r.Get("/", h.OpenInterview)
		r.Get("/status", h.InterviewStatus)
		r.Post("/start", h.StartInterview)
		r.Post("/complete", h.CompleteInterview)
		r.Post("/telemetry", h.RecordTelemetry)
	})

	r.Post("/webhooks/voice", h.VoiceWebhook)

	return r
}
