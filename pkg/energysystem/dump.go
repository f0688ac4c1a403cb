package energysystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridsolph/gridsolph/pkg/log"
	"github.com/gridsolph/gridsolph/pkg/storage"
)

// Save stores a snapshot of the system under name.
func (es *EnergySystem) Save(ctx context.Context, db storage.Database, name string) error {
	data, err := MarshalSnapshot(es)
	if err != nil {
		return err
	}
	return db.SaveSnapshot(ctx, storage.Snapshot{
		Name:    name,
		Version: SnapshotVersion,
		Updated: time.Now(),
		Data:    data,
	})
}

// Load replaces the whole content of the system with the named snapshot.
// Models built before become stale.
func (es *EnergySystem) Load(ctx context.Context, db storage.Database, name string) error {
	snap, err := db.LoadSnapshot(ctx, name)
	if err != nil {
		return err
	}
	restored, err := DecodeSnapshot(snap.Data)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}
	next, err := FromSnapshot(restored, es.solveDir)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}
	gen := es.gen
	*es = *next
	es.gen = gen + 1
	return nil
}

func fileProvider(dir, file string) (*storage.FileProvider, string, error) {
	fp, err := storage.NewFileProvider(dir)
	if err != nil {
		return nil, "", err
	}
	if file == "" {
		file = storage.DefaultDumpFile
	}
	return fp, file, nil
}

// Dump writes the system to dir/file and returns the path. Empty arguments
// default to ~/.oemof/dumps and es_dump.oemof.
func (es *EnergySystem) Dump(ctx context.Context, dir, file string) (string, error) {
	fp, file, err := fileProvider(dir, file)
	if err != nil {
		return "", err
	}
	if err := es.Save(ctx, fp, file); err != nil {
		return "", err
	}
	path := fp.Path(file)
	log.Ctx(ctx).DebugContext(ctx, "attributes dumped", slog.String("path", path))
	return path, nil
}

// Restore replaces the system with the dump at dir/file and returns the
// path. Empty arguments default like Dump.
func (es *EnergySystem) Restore(ctx context.Context, dir, file string) (string, error) {
	fp, file, err := fileProvider(dir, file)
	if err != nil {
		return "", err
	}
	log.Ctx(ctx).InfoContext(ctx, "restoring attributes will overwrite existing attributes")
	if err := es.Load(ctx, fp, file); err != nil {
		return "", err
	}
	path := fp.Path(file)
	log.Ctx(ctx).DebugContext(ctx, "attributes restored", slog.String("path", path))
	return path, nil
}
