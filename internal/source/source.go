// Package source reads the MongoDB collections being migrated. Access is
// read-only: the only query shape is a full, unfiltered scan.
package source

import (
	"context"

	"github.com/mesa4core/lmlmigrate/internal/document"
)

// VisitFunc is called once per scanned document. Returning an error stops
// the scan and the error is returned from Iterate unchanged.
type VisitFunc func(doc document.Doc) error

// Reader provides read-only access to the source database.
type Reader interface {
	Connect(ctx context.Context) error
	Count(ctx context.Context, collection string) (int64, error)
	Iterate(ctx context.Context, collection string, visit VisitFunc) error
	Close(ctx context.Context) error
}
