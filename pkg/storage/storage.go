// Package storage keeps the artifacts written for each analysis run.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about a stored artifact
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the run directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the artifact store operations. Artifacts are grouped by the
// run that produced them.
type Storage interface {
	// Put stores an artifact and returns its metadata
	Put(ctx context.Context, runID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Delete removes an artifact by its ID
	Delete(ctx context.Context, runID uuid.UUID, fileID uuid.UUID) error

	// List returns all artifacts of a run
	List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error)

	// Prune removes runs whose artifacts are all older than before
	Prune(ctx context.Context, before time.Time) (int, error)
}
