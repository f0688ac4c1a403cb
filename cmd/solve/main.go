package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"

	"github.com/gridsolph/gridsolph/pkg/energysystem"
	"github.com/gridsolph/gridsolph/pkg/log"
	"github.com/gridsolph/gridsolph/pkg/metrics"
)

func main() {
	model := lflag.RequiredString("model", "path of the energy system snapshot to optimize (json or yaml)")
	solver := lflag.String("solver", "", "solver to use instead of the one named by the model")
	duals := lflag.Bool("duals", false, "request duals and reduced costs")
	lpDir := lflag.String("lp-dir", "", "directory to write the lp file to, nothing is written if empty")
	lpFile := lflag.String("lp-file", "problem.lp", "name of the lp file")
	dumpDir := lflag.String("dump-dir", "", "directory to dump the optimized system to, nothing is dumped if empty")
	dumpFile := lflag.String("dump-file", "", "name of the dump (default es_dump.oemof)")
	solveDir := lflag.String("solve-dir", "", "directory for solver work files (default system temp dir)")

	lflag.Configure()
	if err := log.Configure(); err != nil {
		panic(err)
	}
	metrics.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, options{
		model:    *model,
		solver:   *solver,
		duals:    *duals,
		lpDir:    *lpDir,
		lpFile:   *lpFile,
		dumpDir:  *dumpDir,
		dumpFile: *dumpFile,
		solveDir: *solveDir,
	}); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "solve failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type options struct {
	model    string
	solver   string
	duals    bool
	lpDir    string
	lpFile   string
	dumpDir  string
	dumpFile string
	solveDir string
}

func run(ctx context.Context, opts options) error {
	data, err := os.ReadFile(opts.model)
	if err != nil {
		return err
	}
	snap, err := energysystem.DecodeSnapshot(data)
	if err != nil {
		return err
	}
	if opts.solver != "" {
		snap.Simulation.Solver = opts.solver
	}
	if opts.duals {
		snap.Simulation.Duals = true
	}
	es, err := energysystem.FromSnapshot(snap, opts.solveDir)
	if err != nil {
		return err
	}

	m, err := es.Model()
	if err != nil {
		return err
	}
	if opts.lpDir != "" {
		path, err := m.WriteLPFile(opts.lpDir, opts.lpFile)
		if err != nil {
			return err
		}
		log.Ctx(ctx).InfoContext(ctx, "wrote lp file", slog.String("path", path))
	}

	if _, err := es.Optimize(ctx, m); err != nil {
		return err
	}
	log.Ctx(ctx).InfoContext(ctx, "optimized model",
		slog.String("solver", es.Results().Solver),
		slog.Float64("objective", es.Results().Objective),
	)

	if opts.dumpDir != "" {
		if _, err := es.Dump(ctx, opts.dumpDir, opts.dumpFile); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(es.Results())
}
