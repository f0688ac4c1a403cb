package solph

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const glpkSolution = `c Problem:    gridsolph
c Rows:       6
c Columns:    9
c Non-zeros:  12
c Status:     OPTIMAL
c Objective:  obj = 0 (MINimum)
c
s bas 6 9 f f 0
i 1 s 0 0
i 2 s 0 0
i 3 s 0 0
i 4 s 0 -50
i 5 s 0 -50
i 6 s 0 -50
j 1 l 0 41
j 2 l 0 41
j 3 l 0 41
j 4 l 0 0
j 5 l 0 0
j 6 l 0 0
j 7 b 3 0
j 8 b 0 0
j 9 b 0 0
e o f
`

func TestParseGLPKSolution(t *testing.T) {
	p, err := Build(gasPlant(t))
	require.NoError(t, err)
	cols, err := writeLP(&bytes.Buffer{}, p)
	require.NoError(t, err)
	require.Len(t, cols, 9)
	assert.Equal(t, "excess(bel_0)", cols[6])

	t.Run("basic solution", func(t *testing.T) {
		sol, err := parseGLPKSolution(strings.NewReader(glpkSolution), p, cols, true)
		require.NoError(t, err)
		assert.Equal(t, StatusOptimal, sol.Status)
		assert.Equal(t, 3.0, sol.Primal[p.Variable("excess(bel_0)").Index])
		assert.Equal(t, -50.0, sol.RowDuals[p.Constraint("c_e_conversion(pp_gas_bel_0)_").Index])
		assert.Equal(t, 41.0, sol.ReducedCosts[p.Variable("flow(bgas_pp_gas_2)").Index])
	})

	t.Run("without duals", func(t *testing.T) {
		sol, err := parseGLPKSolution(strings.NewReader(glpkSolution), p, cols, false)
		require.NoError(t, err)
		assert.Nil(t, sol.RowDuals)
		assert.Nil(t, sol.ReducedCosts)
	})

	t.Run("MIP solution", func(t *testing.T) {
		sol, err := parseGLPKSolution(strings.NewReader("s mip 6 9 o 12.5\ni 1 0\nj 7 4\ne o f\n"), p, cols, false)
		require.NoError(t, err)
		assert.Equal(t, 12.5, sol.Objective)
		assert.Equal(t, StatusOptimal, sol.Status)
		assert.Equal(t, 4.0, sol.Primal[p.Variable("excess(bel_0)").Index])
	})

	t.Run("feasible MIP solution", func(t *testing.T) {
		sol, err := parseGLPKSolution(strings.NewReader("s mip 6 9 f 13.5\ni 1 0\nj 7 4\ne o f\n"), p, cols, false)
		require.NoError(t, err)
		assert.Equal(t, StatusFeasible, sol.Status)
		assert.Equal(t, 13.5, sol.Objective)
	})

	t.Run("infeasible", func(t *testing.T) {
		_, err := parseGLPKSolution(strings.NewReader("s bas 6 9 n f 0\n"), p, cols, false)
		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("unbounded", func(t *testing.T) {
		_, err := parseGLPKSolution(strings.NewReader("s bas 6 9 f n 0\n"), p, cols, false)
		assert.ErrorIs(t, err, ErrUnbounded)
	})

	t.Run("missing status", func(t *testing.T) {
		_, err := parseGLPKSolution(strings.NewReader("c nothing\n"), p, cols, false)
		var serr *SolverError
		assert.ErrorAs(t, err, &serr)
	})
}

func TestParseCBCSolution(t *testing.T) {
	p, err := Build(gasPlant(t))
	require.NoError(t, err)

	t.Run("optimal", func(t *testing.T) {
		in := `Optimal - objective value 12.50000000
      0 c_e_balance(bel_0)_                 0                       0
      3 c_e_conversion(pp_gas_bel_0)_       0                     -50
**    4 c_e_conversion(pp_gas_bel_1)_   1e-09                     -50
      0 flow(bgas_pp_gas_0)               5.5                      41
      6 excess(bel_0)                       3                       0
`
		sol, err := parseCBCSolution(strings.NewReader(in), p, true)
		require.NoError(t, err)
		assert.Equal(t, StatusOptimal, sol.Status)
		assert.Equal(t, 12.5, sol.Objective)
		assert.Equal(t, 5.5, sol.Primal[p.Variable("flow(bgas_pp_gas_0)").Index])
		assert.Equal(t, 41.0, sol.ReducedCosts[p.Variable("flow(bgas_pp_gas_0)").Index])
		assert.Equal(t, 3.0, sol.Primal[p.Variable("excess(bel_0)").Index])
		assert.Equal(t, -50.0, sol.RowDuals[p.Constraint("c_e_conversion(pp_gas_bel_1)_").Index])
	})

	t.Run("infeasible", func(t *testing.T) {
		_, err := parseCBCSolution(strings.NewReader("Infeasible - objective value 0.00000000\n"), p, false)
		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("unbounded", func(t *testing.T) {
		_, err := parseCBCSolution(strings.NewReader("Unbounded - objective value 0.00000000\n"), p, false)
		assert.ErrorIs(t, err, ErrUnbounded)
	})

	t.Run("stopped", func(t *testing.T) {
		_, err := parseCBCSolution(strings.NewReader("Stopped on time - objective value 3.0\n"), p, false)
		var serr *SolverError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "Stopped on time", serr.Status)
	})
}

// fakeGLPK writes a script that records its arguments and writes a fixed
// solution to the path given with --write.
func fakeGLPK(t *testing.T, argsFile string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" > %q
while [ $# -gt 0 ]; do
  if [ "$1" = "--write" ]; then out="$2"; fi
  shift
done
cat > "$out" <<'EOF'
s bas 6 9 f f 12.5
j 7 b 3 0
e o f
EOF
`, argsFile)
	path := filepath.Join(t.TempDir(), "glpsol")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestGLPKSolverRun(t *testing.T) {
	ctx := context.Background()
	p, err := Build(gasPlant(t))
	require.NoError(t, err)

	t.Run("forwards kwargs and cleans up", func(t *testing.T) {
		argsFile := filepath.Join(t.TempDir(), "args")
		work := t.TempDir()
		s := &GLPKSolver{Path: fakeGLPK(t, argsFile)}
		sol, err := s.Solve(ctx, p, SolveOptions{
			WorkDir: work,
			Kwargs:  map[string]string{"tmlim": "10", "exact": ""},
		})
		require.NoError(t, err)
		assert.Equal(t, 12.5, sol.Objective)
		assert.Equal(t, 3.0, sol.Primal[p.Variable("excess(bel_0)").Index])

		args, err := os.ReadFile(argsFile)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(args), "--lp "), string(args))
		assert.True(t, strings.HasSuffix(string(args), "--exact --tmlim 10\n"), string(args))

		entries, err := os.ReadDir(work)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("debug keeps work directory", func(t *testing.T) {
		work := t.TempDir()
		s := &GLPKSolver{Path: fakeGLPK(t, filepath.Join(t.TempDir(), "args"))}
		_, err := s.Solve(ctx, p, SolveOptions{WorkDir: work, Debug: true})
		require.NoError(t, err)

		entries, err := os.ReadDir(work)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		lp, err := os.ReadFile(filepath.Join(work, entries[0].Name(), problemFile))
		require.NoError(t, err)
		assert.Equal(t, writeLPString(t, p), string(lp))
	})

	t.Run("missing binary", func(t *testing.T) {
		s := &GLPKSolver{Path: filepath.Join(t.TempDir(), "missing")}
		_, err := s.Solve(ctx, p, SolveOptions{WorkDir: t.TempDir()})
		var serr *SolverError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, glpkName, serr.Solver)
	})
}

func TestSolverRegistry(t *testing.T) {
	assert.Subset(t, Solvers(), []string{"cbc", "glpk", "gonum"})

	s, err := LookupSolver("gonum")
	require.NoError(t, err)
	assert.Equal(t, "gonum", s.Name())

	_, err = LookupSolver("gurobi")
	assert.ErrorIs(t, err, ErrUnknownSolver)
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("stale after generation change", func(t *testing.T) {
		sys := dispatch(t, 100)
		m, err := New(sys)
		require.NoError(t, err)
		sys.gen++

		_, err = m.Solve(ctx, "gonum", SolveOptions{})
		assert.ErrorIs(t, err, ErrStaleModel)
		assert.ErrorIs(t, m.WriteLP(&bytes.Buffer{}), ErrStaleModel)
		_, err = m.WriteLPFile(t.TempDir(), "x.lp")
		assert.ErrorIs(t, err, ErrStaleModel)
	})

	t.Run("unknown solver", func(t *testing.T) {
		m, err := New(dispatch(t, 100))
		require.NoError(t, err)
		_, err = m.Solve(ctx, "gurobi", SolveOptions{})
		assert.ErrorIs(t, err, ErrUnknownSolver)
	})

	t.Run("failed solve keeps previous results", func(t *testing.T) {
		m, err := New(dispatch(t, 100))
		require.NoError(t, err)
		res, err := m.Solve(ctx, "gonum", SolveOptions{})
		require.NoError(t, err)
		_, err = m.Solve(ctx, "gonum", SolveOptions{Kwargs: map[string]string{"tol": "x"}})
		require.Error(t, err)
		assert.Same(t, res, m.Results())
	})
}
