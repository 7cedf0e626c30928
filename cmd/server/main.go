package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hireops/hireops/internal/api"
	"github.com/hireops/hireops/internal/config"
	"github.com/hireops/hireops/internal/mailbox"
	"github.com/hireops/hireops/internal/mailer"
	"github.com/hireops/hireops/internal/oracle"
	"github.com/hireops/hireops/internal/pipeline"
	"github.com/hireops/hireops/internal/screening"
	"github.com/hireops/hireops/internal/store"
	"github.com/hireops/hireops/internal/usage"
)

func main() {
	log.Println("╔════════════════════════════════════════════╗")
	log.Println("║  HireOps recruiting pipeline server        ║")
	log.Println("╚════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()
	log.Printf("[store] sqlite at %s", cfg.Database.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbound mail: SES when a from-address is configured, otherwise
	// the dry-run mailer that logs instead of sending.
	var sender mailer.Sender
	if cfg.SES.FromAddress != "" {
		sesMailer, err := mailer.NewSESMailer(ctx, cfg.SES)
		if err != nil {
			log.Fatalf("Failed to init SES mailer: %v", err)
		}
		sender = sesMailer
		log.Printf("[mailer] SES in %s as %s", cfg.SES.Region, cfg.SES.FromAddress)
	} else {
		sender = mailer.LogMailer{}
		log.Println("[mailer] no SES from-address configured, mail is logged only")
	}

	if cfg.Webhook.Secret == "" {
		log.Println("[webhook] no secret configured, signature verification is off")
	}

	usageLog := usage.NewLog()
	oracleClient := oracle.NewClient(cfg.Oracle)
	oracleClient.SetUsageRecorder(usageLog)

	engine := screening.NewEngine(s, oracleClient, sender,
		cfg.Company.Name, cfg.Company.FrontendURL,
		time.Duration(cfg.Screening.LinkExpiryHours)*time.Hour)

	pipe := pipeline.New(s, oracleClient, engine)
	worker := pipeline.NewWorker(pipe)
	worker.Start(ctx)

	manager := mailbox.NewManager(s, mailbox.DialIMAP, worker, cfg.Mailbox.PollInterval())
	if err := manager.Restore(ctx); err != nil {
		log.Printf("[mailbox] restore failed: %v", err)
	} else if manager.Status().Connected {
		if err := manager.StartListener(context.Background(), mailbox.ModeIdle); err != nil {
			log.Printf("[mailbox] listener start failed: %v", err)
		}
	}

	handlers := api.NewHandlers(cfg, s, oracleClient, engine, pipe, worker, manager, usageLog)
	server := api.NewServer(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("[server] listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil {
			log.Printf("[server] stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	manager.StopListener()
	worker.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
	log.Println("Goodbye")
}
