package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/levenlabs/go-lflag"

	"github.com/gridsolph/gridsolph/pkg/log"
)

// DefaultDumpFile is the snapshot name used when none is given.
const DefaultDumpFile = "es_dump.oemof"

// DefaultDir returns the directory snapshots are written to by default,
// ~/.oemof/dumps.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".oemof", "dumps"), nil
}

// FileProvider implements the Database interface with one file per snapshot
// in a directory. The file holds the snapshot JSON as is.
type FileProvider struct {
	dir string
}

// NewFileProvider returns a provider rooted at dir, or at DefaultDir if dir
// is empty. The directory is created on the first save.
func NewFileProvider(dir string) (*FileProvider, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	return &FileProvider{dir: dir}, nil
}

// configuredFile sets up the file provider.
// It registers flags for configuration.
func configuredFile() *FileProvider {
	dir := lflag.String("storage-dir", "", "Directory for snapshot files (default ~/.oemof/dumps)")

	f := &FileProvider{}

	lflag.Do(func() {
		f.dir = *dir
	})

	return f
}

// Validate fills in the default directory if none was configured.
func (f *FileProvider) Validate() error {
	if f.dir != "" {
		return nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return err
	}
	f.dir = dir
	return nil
}

// Dir is the directory snapshots are stored in.
func (f *FileProvider) Dir() string {
	return f.dir
}

// Path returns the file a snapshot is stored in.
func (f *FileProvider) Path(name string) string {
	return filepath.Join(f.dir, name)
}

// Close is a no-op.
func (f *FileProvider) Close() error {
	return nil
}

// SaveSnapshot writes the snapshot data to its file. The file is replaced
// atomically so a failed write keeps the previous snapshot.
func (f *FileProvider) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if err := ValidateName(snap.Name); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, "."+snap.Name+".*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(snap.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot %s: %w", snap.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", snap.Name, err)
	}
	path := f.Path(snap.Name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.Name, err)
	}
	log.Ctx(ctx).DebugContext(ctx, "saved snapshot", slog.String("path", path), slog.Int("bytes", len(snap.Data)))
	return nil
}

// LoadSnapshot reads a snapshot file. The version is taken from the
// top-level "version" field of the document.
func (f *FileProvider) LoadSnapshot(ctx context.Context, name string) (Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return Snapshot{}, err
	}
	path := f.Path(name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return Snapshot{}, fmt.Errorf("failed to stat snapshot %s: %w", name, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "snapshot has no readable version", slog.String("path", path), slog.Any("err", err))
	}
	return Snapshot{
		Name:    name,
		Version: head.Version,
		Updated: info.ModTime().UTC(),
		Data:    data,
	}, nil
}

// ListSnapshots lists the snapshot files. Version is not read.
func (f *FileProvider) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	var snaps []Snapshot
	for _, e := range entries {
		if !e.Type().IsRegular() || ValidateName(e.Name()) != nil || e.Name()[0] == '.' {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{Name: e.Name(), Updated: info.ModTime().UTC()})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	return snaps, nil
}

// DeleteSnapshot removes a snapshot file.
func (f *FileProvider) DeleteSnapshot(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(f.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	return nil
}
