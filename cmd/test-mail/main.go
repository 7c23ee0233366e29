package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/config"
	"github.com/garyjia/travel-report/internal/infrastructure/mail"
	"github.com/garyjia/travel-report/internal/infrastructure/render"
	"go.uber.org/zap"
)

// Isolated check of SMTP delivery using the configured mail section.
// Sends one notification-shaped message without touching the database.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	to := flag.String("to", "", "recipient address")
	timeout := flag.Duration("timeout", 30*time.Second, "send timeout")
	verbose := flag.Bool("verbose", false, "verbose output")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if strings.TrimSpace(*to) == "" {
		fmt.Fprintln(os.Stderr, "Usage: test-mail --to someone@example.go.id [--config configs/config.yaml]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== SMTP Notification Test ===")
	fmt.Printf("  Host: %s:%d\n", cfg.Mail.Host, cfg.Mail.Port)
	fmt.Printf("  From: %s\n", cfg.Mail.From)
	fmt.Printf("  STARTTLS: %v\n", cfg.Mail.StartTLS)
	fmt.Println()

	sender := mail.NewSMTPSender(mail.Config{
		Host:          cfg.Mail.Host,
		Port:          cfg.Mail.Port,
		Username:      cfg.Mail.Username,
		Password:      cfg.Mail.Password,
		From:          cfg.Mail.From,
		StartTLS:      cfg.Mail.StartTLS,
		SkipTLSVerify: cfg.Mail.SkipTLSVerify,
		Timeout:       cfg.Mail.Timeout,
	}, logger)
	renderer := render.NewMarkdownRenderer(logger)

	body := "Hello,\n\nThis is a test of the **travel assignment** notification channel.\n\n" +
		"- **Sent at:** " + time.Now().In(cfg.Location()).Format(time.RFC1123) + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	err = sender.Send(ctx, port.MailMessage{
		To:       *to,
		Subject:  "Travel report: SMTP test",
		HTMLBody: renderer.Render(body),
		TextBody: body,
	})
	if err != nil {
		fmt.Printf("✗ Failed to send: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Message sent to %s\n", *to)
}
