package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

var _ Interface = &MockLedger{}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) SaveDocument(ctx context.Context, entry LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedger) ListDocuments(ctx context.Context, namespace string) ([]LedgerEntry, error) {
	args := m.Called(ctx, namespace)
	entries, _ := args.Get(0).([]LedgerEntry)
	return entries, args.Error(1)
}

func (m *MockLedger) ListAll(ctx context.Context) ([]LedgerEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]LedgerEntry)
	return entries, args.Error(1)
}

func (m *MockLedger) Close() error {
	return m.Called().Error(0)
}
