package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrStoreUnavailable signals a connection-level failure talking to the
// vector database. Retry policy belongs to the caller.
var ErrStoreUnavailable = errors.New("vector store unavailable")

// ErrDuplicateDocument signals that vectors tagged with the same
// document id already exist. Re-ingestion under a reused id is refused
// rather than silently duplicated; a changed file must get a new id.
var ErrDuplicateDocument = errors.New("document already has stored vectors")

// PartialDeleteError reports a cascade delete that removed some chunk
// vectors but left others behind. It is never swallowed: the caller
// decides whether to retry or alert.
type PartialDeleteError struct {
	DocumentID        string
	RemainingChunkIDs []string
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("partial delete for document %s: %d chunks remain (%s)",
		e.DocumentID, len(e.RemainingChunkIDs), strings.Join(e.RemainingChunkIDs, ", "))
}

// mapStoreErr classifies infrastructure failures as ErrStoreUnavailable
// so callers can apply their retry policy without inspecting driver
// internals.
func mapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
