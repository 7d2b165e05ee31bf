package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDir = ".meta"

// LocalStorage implements Storage on the local filesystem:
// <base>/<run id>/<file> with metadata under <base>/<run id>/.meta.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// Put stores an artifact and returns its metadata. A file with the same name
// in the same run is replaced.
func (s *LocalStorage) Put(ctx context.Context, runID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fileID := uuid.New()

	runDir := filepath.Join(s.basePath, runID.String())
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	storedFilename := sanitizeFilename(filename)
	filePath := filepath.Join(runDir, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		RunID:       runID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        storedFilename,
		CreatedAt:   time.Now(),
	}

	if existing, err := s.List(ctx, runID); err == nil {
		for _, old := range existing {
			if old.Path == storedFilename {
				os.Remove(s.metaPath(runID, old.ID))
			}
		}
	}

	if err := s.saveMetadata(runID, fileID, info); err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, err
	}

	return info, nil
}

// Delete removes an artifact by its ID
func (s *LocalStorage) Delete(ctx context.Context, runID uuid.UUID, fileID uuid.UUID) error {
	info, err := s.readInfo(runID, fileID)
	if err != nil {
		return err
	}

	if err := os.Remove(s.PathOf(info)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	os.Remove(s.metaPath(runID, fileID))
	return nil
}

// List returns all artifacts of a run, oldest first
func (s *LocalStorage) List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error) {
	dir := filepath.Join(s.basePath, runID.String(), metaDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*FileInfo{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		info, err := s.readInfo(runID, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	sortByCreated(files)
	return files, nil
}

func (s *LocalStorage) readInfo(runID, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(runID, fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

// Prune removes run directories whose newest artifact was created before
// the cutoff. Directories that are not runs are left alone.
func (s *LocalStorage) Prune(ctx context.Context, before time.Time) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to list runs: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.IsDir() {
			continue
		}
		runID, err := uuid.Parse(entry.Name())
		if err != nil {
			continue
		}

		files, err := s.List(ctx, runID)
		if err != nil || len(files) == 0 {
			continue
		}
		if files[len(files)-1].CreatedAt.Before(before) {
			if err := os.RemoveAll(filepath.Join(s.basePath, entry.Name())); err != nil {
				return removed, fmt.Errorf("failed to remove run %s: %w", runID, err)
			}
			removed++
		}
	}
	return removed, nil
}

// PathOf returns where an artifact lives on disk.
func (s *LocalStorage) PathOf(info *FileInfo) string {
	return filepath.Join(s.basePath, info.RunID.String(), info.Path)
}

func (s *LocalStorage) metaPath(runID, fileID uuid.UUID) string {
	return filepath.Join(s.basePath, runID.String(), metaDir, fileID.String()+".json")
}

// saveMetadata saves artifact metadata to a JSON file
func (s *LocalStorage) saveMetadata(runID, fileID uuid.UUID, info *FileInfo) error {
	dir := filepath.Join(s.basePath, runID.String(), metaDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath(runID, fileID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

func sortByCreated(files []*FileInfo) {
	sort.SliceStable(files, func(i, j int) bool { return files[i].CreatedAt.Before(files[j].CreatedAt) })
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
