package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gridsolph/gridsolph/pkg/energysystem"
	"github.com/gridsolph/gridsolph/pkg/log"
	"github.com/gridsolph/gridsolph/pkg/solph"
	"github.com/gridsolph/gridsolph/pkg/storage"
	"github.com/gridsolph/gridsolph/pkg/types"
)

type optimizeResponse struct {
	RunID   string         `json:"runID"`
	Saved   string         `json:"saved,omitempty"`
	Results *types.Results `json:"results"`
}

type snapshotResponse struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// errorStatus maps an error of a build, solve or storage call to the status
// code returned to the client.
func errorStatus(err error) int {
	var cerr *types.ConfigError
	switch {
	case errors.As(err, &cerr),
		errors.Is(err, types.ErrNoTimesteps),
		errors.Is(err, types.ErrUnknownKind),
		errors.Is(err, solph.ErrUnknownSolver),
		errors.Is(err, solph.ErrUnknownObjective),
		errors.Is(err, energysystem.ErrSnapshotVersion),
		errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, solph.ErrInfeasible), errors.Is(err, solph.ErrUnbounded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// readSnapshot decodes the JSON or YAML body into a snapshot. A solver named
// in the query overrides the one of the snapshot.
func (s *Server) readSnapshot(w http.ResponseWriter, r *http.Request) (*energysystem.Snapshot, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	snap, err := energysystem.DecodeSnapshot(body)
	if err != nil {
		return nil, err
	}
	s.applySolver(r, snap)
	return snap, nil
}

func (s *Server) applySolver(r *http.Request, snap *energysystem.Snapshot) {
	if solver := r.URL.Query().Get("solver"); solver != "" {
		snap.Simulation.Solver = solver
	} else if snap.Simulation.Solver == "" {
		snap.Simulation.Solver = s.defaultSolver
	}
}

func (s *Server) newSystem(w http.ResponseWriter, r *http.Request) (*energysystem.EnergySystem, bool) {
	ctx := r.Context()
	snap, err := s.readSnapshot(w, r)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "invalid model", slog.Any("error", err))
		writeJSONError(w, "invalid model: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	es, err := energysystem.FromSnapshot(snap, s.solveDir)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "invalid energy system", slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return nil, false
	}
	return es, true
}

func (s *Server) handleLP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	es, ok := s.newSystem(w, r)
	if !ok {
		return
	}
	m, err := es.Model()
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to build model", slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	var buf bytes.Buffer
	if err := m.WriteLP(&buf); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write lp", slog.Any("error", err))
		writeJSONError(w, "failed to write lp", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) optimize(w http.ResponseWriter, r *http.Request, es *energysystem.EnergySystem, save string) {
	ctx := r.Context()
	if _, err := es.Optimize(ctx, nil); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to optimize", slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	if save != "" {
		if err := es.Save(ctx, s.storage, save); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to save snapshot", slog.String("name", save), slog.Any("error", err))
			writeJSONError(w, "failed to save snapshot", errorStatus(err))
			return
		}
	}
	log.Ctx(ctx).InfoContext(ctx, "optimized model",
		slog.String("solver", es.Results().Solver),
		slog.Float64("objective", es.Results().Objective),
		slog.Int("entities", len(es.Entities())),
	)
	writeJSON(w, http.StatusOK, optimizeResponse{
		RunID:   runID(r),
		Saved:   save,
		Results: es.Results(),
	})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	save := r.URL.Query().Get("save")
	if save != "" {
		if err := storage.ValidateName(save); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	es, ok := s.newSystem(w, r)
	if !ok {
		return
	}
	s.optimize(w, r, es, save)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snaps, err := s.storage.ListSnapshots(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list snapshots", slog.Any("error", err))
		writeJSONError(w, "failed to list snapshots", http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []storage.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	snap, err := s.storage.LoadSnapshot(ctx, name)
	if err != nil {
		if code := errorStatus(err); code != http.StatusInternalServerError {
			writeJSONError(w, err.Error(), code)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to load snapshot", slog.String("name", name), slog.Any("error", err))
		writeJSONError(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(snap.Data); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// handlePutSnapshot validates the model and stores it in its canonical JSON
// form.
func (s *Server) handlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	if err := storage.ValidateName(name); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	es, ok := s.newSystem(w, r)
	if !ok {
		return
	}
	if err := es.Save(ctx, s.storage, name); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save snapshot", slog.String("name", name), slog.Any("error", err))
		writeJSONError(w, "failed to save snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Name: name, Version: energysystem.SnapshotVersion})
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	if err := s.storage.DeleteSnapshot(ctx, name); err != nil {
		if code := errorStatus(err); code != http.StatusInternalServerError {
			writeJSONError(w, err.Error(), code)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to delete snapshot", slog.String("name", name), slog.Any("error", err))
		writeJSONError(w, "failed to delete snapshot", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOptimizeSnapshot optimizes a stored snapshot and stores it back
// together with the results.
func (s *Server) handleOptimizeSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")
	stored, err := s.storage.LoadSnapshot(ctx, name)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to load snapshot", slog.String("name", name), slog.Any("error", err))
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	snap, err := energysystem.DecodeSnapshot(stored.Data)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "invalid stored snapshot", slog.String("name", name), slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.applySolver(r, snap)
	es, err := energysystem.FromSnapshot(snap, s.solveDir)
	if err != nil {
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	s.optimize(w, r, es, name)
}
