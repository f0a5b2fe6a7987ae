package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Filename is the default run record name inside the output directory.
const Filename = ".mesos-packager-run.yaml"

// fileMode is the permission of the run record.
const fileMode os.FileMode = 0o644

// Record describes a pipeline run.
type Record struct {
	// RunID identifies the run in logs.
	RunID string `yaml:"run_id"`
	// Actor is user@host that started the run.
	Actor string `yaml:"actor,omitempty"`
	// Platform is family/major.
	Platform string `yaml:"platform"`
	// Version is the nominal version, empty until resolved.
	Version string `yaml:"version,omitempty"`
	// Revision is the build revision.
	Revision string `yaml:"revision"`
	// Ref is the resolved source ref.
	Ref string `yaml:"ref,omitempty"`
	// State is the last state reached.
	State string `yaml:"state"`
	// Completed lists the stages that ran to completion.
	Completed []string `yaml:"completed,omitempty"`
	// Skipped lists the stages that were skipped.
	Skipped []string `yaml:"skipped,omitempty"`
	// FailedStage is the stage that aborted the run.
	FailedStage string `yaml:"failed_stage,omitempty"`
	// Error is the failure message.
	Error string `yaml:"error,omitempty"`
	// Packages lists the produced package files.
	Packages []string `yaml:"packages,omitempty"`
	// StartedAt is when the run began.
	StartedAt time.Time `yaml:"started_at"`
	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Repository defines persistence operations for run records.
type Repository interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

// FileRepository persists the run record as YAML on disk.
type FileRepository struct {
	// path is the filesystem location of the record.
	path string
	// mu serializes reads and writes of the record file.
	mu sync.Mutex
}

// ErrNotFound is returned when no run record exists yet.
var ErrNotFound = errors.New("run record not found")

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read run record: %w", err)
	}

	var record Record
	if err = yaml.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("decode run record: %w", err)
	}

	return &record, nil
}

// Save writes the record atomically through a temporary file.
func (r *FileRepository) Save(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create run record directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, fileMode); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace run record: %w", err)
	}

	return nil
}
