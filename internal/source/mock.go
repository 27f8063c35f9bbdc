package source

import (
	"context"
	"fmt"

	"github.com/mesa4core/lmlmigrate/internal/document"
)

// MockReader is a test double for the Reader interface.
type MockReader struct {
	ConnectErr error

	// Docs maps a collection to the documents Iterate yields.
	Docs     map[string][]document.Doc
	Counts   map[string]int64 // overrides len(Docs[c]) when set
	CountErr error
	// ScanErr fails Iterate after ScanErrAfter documents.
	ScanErr      error
	ScanErrAfter int

	// Track calls
	Connected bool
	Closed    bool
	Scanned   []string
}

func (m *MockReader) Connect(_ context.Context) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.Connected = true
	return nil
}

func (m *MockReader) Count(_ context.Context, collection string) (int64, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	if n, ok := m.Counts[collection]; ok {
		return n, nil
	}
	docs, ok := m.Docs[collection]
	if !ok {
		return 0, fmt.Errorf("no documents configured for collection %s", collection)
	}
	return int64(len(docs)), nil
}

func (m *MockReader) Iterate(ctx context.Context, collection string, visit VisitFunc) error {
	m.Scanned = append(m.Scanned, collection)
	for i, d := range m.Docs[collection] {
		if m.ScanErr != nil && i == m.ScanErrAfter {
			return m.ScanErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(d); err != nil {
			return err
		}
	}
	if m.ScanErr != nil && m.ScanErrAfter >= len(m.Docs[collection]) {
		return m.ScanErr
	}
	return nil
}

func (m *MockReader) Close(_ context.Context) error {
	m.Closed = true
	return nil
}
