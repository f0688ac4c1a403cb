package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gridsolph/gridsolph/pkg/log"
)

const snapshotsCollection = "snapshots"

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Each snapshot is a document in the "snapshots" collection.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// an empty project id is detected from the environment
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// SaveSnapshot stores the snapshot JSON as a string for portability.
func (f *FirestoreProvider) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if err := ValidateName(snap.Name); err != nil {
		return err
	}
	updated := snap.Updated
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := f.client.Collection(snapshotsCollection).Doc(snap.Name).Set(ctx, map[string]interface{}{
		"json":    string(snap.Data),
		"version": snap.Version,
		"updated": updated.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.Name, err)
	}
	return nil
}

// LoadSnapshot retrieves a snapshot document.
func (f *FirestoreProvider) LoadSnapshot(ctx context.Context, name string) (Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return Snapshot{}, err
	}
	doc, err := f.client.Collection(snapshotsCollection).Doc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return Snapshot{}, fmt.Errorf("failed to get snapshot %s: %w", name, err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc missing json", slog.String("name", name))
		return Snapshot{}, fmt.Errorf("snapshot %s missing json: %w", name, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "snapshot doc json not string", slog.String("name", name))
		return Snapshot{}, fmt.Errorf("snapshot %s json not string", name)
	}
	snap := snapshotMeta(doc)
	snap.Data = []byte(jsonStr)
	return snap, nil
}

// snapshotMeta reads the version and update time of a document. Missing
// fields are left at their zero value.
func snapshotMeta(doc *firestore.DocumentSnapshot) Snapshot {
	snap := Snapshot{Name: doc.Ref.ID}
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			snap.Version = int(vInt)
		}
	}
	if v, err := doc.DataAt("updated"); err == nil {
		if ts, ok := v.(time.Time); ok {
			snap.Updated = ts.UTC()
		}
	}
	return snap
}

// ListSnapshots reads only the metadata fields of every snapshot.
func (f *FirestoreProvider) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	iter := f.client.Collection(snapshotsCollection).
		Select("version", "updated").
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var snaps []Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating snapshots: %w", err)
		}
		snaps = append(snaps, snapshotMeta(doc))
	}
	return snaps, nil
}

// DeleteSnapshot deletes a snapshot document. It fails if the document does
// not exist.
func (f *FirestoreProvider) DeleteSnapshot(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	_, err := f.client.Collection(snapshotsCollection).Doc(name).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	return nil
}
