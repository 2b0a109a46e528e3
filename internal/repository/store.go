// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Thread operations
	CreateThread(ctx context.Context, thread *domain.Thread) error
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)
	GetOrCreateThread(ctx context.Context, threadID, resourceID string) (*domain.Thread, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error)
	CountMessages(ctx context.Context, threadID string) (int, error)
	DeleteMessagesAfter(ctx context.Context, threadID string, keep int) (int, error)

	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Lifecycle
	Close() error
}
