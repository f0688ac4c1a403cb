package solph

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const glpkName = "glpk"

// GLPKSolver runs glpsol on the LP file and reads the solution it writes.
// Kwargs are passed as --key value, or --key when the value is empty.
type GLPKSolver struct {
	// Path is the glpsol binary, looked up in PATH when empty.
	Path string
}

func (s *GLPKSolver) Name() string { return glpkName }

func (s *GLPKSolver) Solve(ctx context.Context, p *Problem, opts SolveOptions) (*Solution, error) {
	w, err := newWorkspace(ctx, glpkName, p, opts)
	if err != nil {
		return nil, err
	}
	defer w.cleanup()

	args := []string{"--lp", w.problem(), "--write", w.solution()}
	if opts.Relaxed {
		args = append(args, "--nomip")
	}
	for _, k := range sortedKwargs(opts.Kwargs) {
		args = append(args, "--"+k)
		if v := opts.Kwargs[k]; v != "" {
			args = append(args, v)
		}
	}
	bin := s.Path
	if bin == "" {
		bin = "glpsol"
	}
	output, err := run(ctx, glpkName, bin, args, opts)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(w.solution())
	if err != nil {
		return nil, &SolverError{Solver: glpkName, Output: output, Err: err}
	}
	defer f.Close()
	sol, err := parseGLPKSolution(f, p, w.cols, opts.Duals)
	var serr *SolverError
	if errors.As(err, &serr) {
		serr.Output = output
	}
	return sol, err
}

// parseGLPKSolution reads the plain text format written by glpsol --write.
// Rows are numbered like the constraints, columns in order of their first
// appearance in the LP file.
func parseGLPKSolution(r io.Reader, p *Problem, cols []string, duals bool) (*Solution, error) {
	lk := newLookup(p)
	sol := newSolution(p, duals)
	mip := false
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "s":
			if len(f) < 5 {
				return nil, &SolverError{Solver: glpkName, Err: fmt.Errorf("malformed solution line %q", sc.Text())}
			}
			mip = f[1] == "mip"
			if err := glpkStatus(sol, f); err != nil {
				return nil, err
			}
		case "i", "j":
			if len(f) < 3 {
				return nil, &SolverError{Solver: glpkName, Err: fmt.Errorf("malformed solution line %q", sc.Text())}
			}
			ord, err := strconv.Atoi(f[1])
			if err != nil {
				return nil, &SolverError{Solver: glpkName, Err: err}
			}
			// mip lines are "i ord val", basic and interior ones are
			// "i ord st prim dual" and "i ord prim dual"
			vals := f[2:]
			if !mip && len(vals) == 3 {
				vals = vals[1:]
			}
			prim, err := strconv.ParseFloat(vals[0], 64)
			if err != nil {
				return nil, &SolverError{Solver: glpkName, Err: err}
			}
			dual := 0.0
			if len(vals) > 1 {
				if dual, err = strconv.ParseFloat(vals[1], 64); err != nil {
					return nil, &SolverError{Solver: glpkName, Err: err}
				}
			}
			if f[0] == "i" {
				if duals && ord >= 1 && ord <= len(p.Constraints) {
					sol.RowDuals[ord-1] = dual
				}
				continue
			}
			if ord < 1 || ord > len(cols) {
				return nil, &SolverError{Solver: glpkName, Err: fmt.Errorf("column %d out of range", ord)}
			}
			j, ok := lk.vars[cols[ord-1]]
			if !ok {
				continue
			}
			sol.Primal[j] = prim
			if duals {
				sol.ReducedCosts[j] = dual
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &SolverError{Solver: glpkName, Err: err}
	}
	if sol.Status == "" {
		return nil, &SolverError{Solver: glpkName, Err: fmt.Errorf("solution has no status line")}
	}
	return sol, nil
}

func glpkStatus(sol *Solution, f []string) error {
	obj := f[len(f)-1]
	v, err := strconv.ParseFloat(obj, 64)
	if err != nil {
		return &SolverError{Solver: glpkName, Err: fmt.Errorf("invalid objective %q", obj)}
	}
	sol.Objective = v
	switch f[1] {
	case "bas":
		if len(f) < 7 {
			return &SolverError{Solver: glpkName, Err: fmt.Errorf("malformed status line")}
		}
		pst, dst := f[4], f[5]
		switch {
		case pst == "f" && dst == "f":
			sol.Status = StatusOptimal
		case pst == "n" || pst == "i":
			return ErrInfeasible
		case dst == "n" || dst == "i":
			return ErrUnbounded
		default:
			return &SolverError{Solver: glpkName, Status: pst + dst}
		}
	case "mip", "ipt":
		switch f[4] {
		case "o":
			sol.Status = StatusOptimal
		case "f":
			sol.Status = StatusFeasible
		case "n", "i":
			return ErrInfeasible
		default:
			return &SolverError{Solver: glpkName, Status: f[4]}
		}
	default:
		return &SolverError{Solver: glpkName, Err: fmt.Errorf("unknown solution kind %q", f[1])}
	}
	return nil
}
