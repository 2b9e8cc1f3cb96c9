package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/statement-ledger/internal/service"
)

// MockPublisher records PublishJournal calls for testing.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, name string, header []string, rows [][]string) error
	Calls       []PublishCall
	mu          sync.Mutex
}

// PublishCall represents a single call to PublishJournal.
type PublishCall struct {
	Error  error
	Name   string
	Header []string
	Rows   [][]string
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishJournal implements the JournalPublisher interface.
func (m *MockPublisher) PublishJournal(ctx context.Context, name string, header []string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.PublishFunc != nil {
		err = m.PublishFunc(ctx, name, header, rows)
	}
	m.Calls = append(m.Calls, PublishCall{Name: name, Header: header, Rows: rows, Error: err})
	return err
}

// GetCalls returns a copy of all publish calls.
func (m *MockPublisher) GetCalls() []PublishCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]PublishCall, len(m.Calls))
	copy(calls, m.Calls)
	return calls
}

var _ service.JournalPublisher = (*MockPublisher)(nil)
