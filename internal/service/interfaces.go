// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/statement-ledger/internal/model"
)

// RunFilter defines filtering options for run history queries.
type RunFilter struct {
	Period string
	Limit  int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Run history
	SaveRun(ctx context.Context, run *model.RunRecord, lines []model.RunLine) error
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
	LatestRun(ctx context.Context, period string) (*model.RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error)
	GetRunLines(ctx context.Context, runID string) ([]model.RunLine, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// StatementSource produces normalized statement records for a period.
type StatementSource interface {
	FetchStatement(ctx context.Context, period model.Period) (*model.Statement, error)
}

// JournalPublisher pushes rendered journal rows somewhere other than disk.
type JournalPublisher interface {
	PublishJournal(ctx context.Context, name string, header []string, rows [][]string) error
}
