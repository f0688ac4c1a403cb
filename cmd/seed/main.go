package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"

	"github.com/gridsolph/gridsolph/pkg/log"
	"github.com/gridsolph/gridsolph/pkg/storage"
)

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	solver := lflag.String("solver", "gonum", "solver stored with the seeded systems")
	optimize := lflag.Bool("optimize", false, "optimize the systems before storing them")
	lflag.Configure()
	if err := log.Configure(); err != nil {
		panic(err)
	}

	ctx := context.Background()
	defer s.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding example systems")
	if err := seed(ctx, s, *solver, *optimize); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete", slog.Int("systems", len(examples)))
}

func seed(ctx context.Context, db storage.Database, solver string, optimize bool) error {
	for _, ex := range examples {
		es, err := ex.build(solver)
		if err != nil {
			return err
		}
		if optimize {
			if _, err := es.Optimize(ctx, nil); err != nil {
				return err
			}
		}
		if err := es.Save(ctx, db, ex.name); err != nil {
			return err
		}
		log.Ctx(ctx).DebugContext(ctx, "seeded system", slog.String("name", ex.name))
	}
	return nil
}
