package port

import (
	"context"

	"github.com/garyjia/travel-report/internal/domain/entity"
)

// MailMessage is a rendered notification email
type MailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// MailSender delivers notification emails
type MailSender interface {
	Send(ctx context.Context, msg MailMessage) error
}

// StatsCache holds computed dashboards for a bounded time
type StatsCache interface {
	// GetOrCompute returns the cached value for key or computes it once,
	// sharing the result with concurrent callers of the same key
	GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (*entity.DashboardStats, error)) (*entity.DashboardStats, error)
	// RemoveMatching drops entries whose key satisfies match and returns
	// how many were removed
	RemoveMatching(match func(key string) bool) int
	Purge()
}

// MarkdownRenderer converts narrative Markdown into sanitized HTML
type MarkdownRenderer interface {
	Render(source string) string
}

// ExportRow is one report line in a spreadsheet export
type ExportRow struct {
	Report     *entity.Report
	OwnerName  string
	Assignment *entity.Assignment
	Total      int64
}

// ReportExporter renders report rows into a spreadsheet
type ReportExporter interface {
	Export(ctx context.Context, rows []ExportRow) ([]byte, error)
}

// TokenVerifier resolves a bearer token to the id of the acting user
type TokenVerifier interface {
	Verify(token string) (int64, error)
}
