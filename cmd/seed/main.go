// Seeds a local database with demo jobs and a few inbox emails so the
// dashboard has something to show. Safe to re-run; existing rows are
// left alone.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/hireops/hireops/internal/config"
	"github.com/hireops/hireops/internal/store"
)

func main() {
	var dbPath string
	flag.StringVar(&dbPath, "db", "", "database path (defaults to the configured one)")
	flag.Parse()

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}

	s, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	seedJobs(ctx, s)
	seedEmails(ctx, s)
	log.Println("Seed complete")
}

func seedJobs(ctx context.Context, s *store.Store) {
	jobs := []*store.Job{
		{
			Title:            "Backend Engineer",
			Department:       "Platform",
			Location:         "Remote",
			Description:      "Build and operate the services behind the product.",
			MustHaveSkills:   []string{"go", "sql", "docker"},
			NiceToHaveSkills: []string{"kubernetes", "terraform"},
		},
		{
			Title:            "Data Engineer",
			Department:       "Data",
			Location:         "Remote",
			Description:      "Own the ingestion pipelines and the warehouse.",
			MustHaveSkills:   []string{"python", "sql", "airflow"},
			NiceToHaveSkills: []string{"spark", "dbt"},
		},
		{
			Title:            "Product Designer",
			Department:       "Design",
			Location:         "New York",
			Description:      "Design the operator dashboard and candidate experience.",
			MustHaveSkills:   []string{"figma", "prototyping"},
			NiceToHaveSkills: []string{"user research"},
		},
	}

	existing, err := s.ListJobs(ctx, "")
	if err != nil {
		log.Fatalf("list jobs: %v", err)
	}
	have := map[string]bool{}
	for _, j := range existing {
		have[j.Title] = true
	}

	for _, job := range jobs {
		if have[job.Title] {
			continue
		}
		if err := s.CreateJob(ctx, job); err != nil {
			log.Fatalf("create job %q: %v", job.Title, err)
		}
		log.Printf("[seed] job %s %q", job.Code, job.Title)
	}
}

func seedEmails(ctx context.Context, s *store.Store) {
	now := time.Now().UTC()
	emails := []*store.Email{
		{
			MessageID:   "<seed-application-1@hireops>",
			UID:         0,
			FromAddress: "maria.santos@example.com",
			FromName:    "Maria Santos",
			Subject:     "Application for the Backend Engineer position",
			BodyText: "Hello,\n\nI would like to apply for the Backend Engineer role. " +
				"I have six years of experience building go services backed by sql " +
				"databases, all deployed with docker.\n\nBest,\nMaria",
			Attachments: []store.Attachment{
				{Filename: "maria-santos-resume.pdf", ContentType: "application/pdf", Size: 84213},
			},
			ReceivedAt: now.Add(-2 * time.Hour),
		},
		{
			MessageID:   "<seed-application-2@hireops>",
			UID:         0,
			FromAddress: "dev.patel@example.com",
			FromName:    "Dev Patel",
			Subject:     "Data Engineer application",
			BodyText: "Hi,\n\nApplying for the Data Engineer opportunity. My background is " +
				"python and sql with some airflow orchestration.\n\nThanks,\nDev",
			ReceivedAt: now.Add(-90 * time.Minute),
		},
		{
			MessageID:   "<seed-newsletter@hireops>",
			UID:         0,
			FromAddress: "news@vendor.example.com",
			FromName:    "Vendor Weekly",
			Subject:     "Your weekly industry digest",
			BodyText:    "Top stories this week in hiring tech.",
			ReceivedAt:  now.Add(-30 * time.Minute),
		},
	}

	for _, email := range emails {
		_, created, err := s.CreateEmail(ctx, email)
		if err != nil {
			log.Fatalf("create email %s: %v", email.MessageID, err)
		}
		if created {
			log.Printf("[seed] email %s", email.Subject)
		}
	}
	fmt.Println("Run POST /api/v1/inbox/process-pending to push the seeded mail through the workflow.")
}
