package solph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/gridsolph/gridsolph/pkg/log"
)

const (
	gonumName = "gonum"

	defaultSimplexTol = 1e-10
	// feasibilityTol is the relative violation accepted when checking rows
	// that were dropped as linearly dependent.
	feasibilityTol = 1e-6
)

// GonumSolver solves problems in process with the gonum simplex. It builds a
// dense standard form so it is meant for small and medium problems. Duals are
// obtained by solving the dual program.
//
// Recognized kwargs: "tol", the simplex tolerance.
type GonumSolver struct{}

func (s *GonumSolver) Name() string { return gonumName }

// standardForm is min c'x s.t. Ax = b, x >= 0 derived from a problem.
type standardForm struct {
	c    []float64
	rows [][]float64
	b    []float64

	// shift is the value a problem variable has when its column is zero;
	// col maps problem variables to columns, -1 when eliminated.
	shift []float64
	col   []int
	// row maps problem constraints to rows, -1 when dropped.
	row   []int
	ncols int
}

func (s *GonumSolver) Solve(ctx context.Context, p *Problem, opts SolveOptions) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tol := defaultSimplexTol
	for k, v := range opts.Kwargs {
		switch k {
		case "tol":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, &SolverError{Solver: gonumName, Err: fmt.Errorf("invalid tol %q: %w", v, err)}
			}
			tol = f
		default:
			log.Ctx(ctx).WarnContext(ctx, "ignoring unknown gonum solver option", slog.String("option", k))
		}
	}

	sf, err := newStandardForm(p)
	if err != nil {
		return nil, err
	}
	sf.dropDependentRows()
	c, A, b, cols := sf.compact()
	if opts.Verbose {
		log.Ctx(ctx).InfoContext(ctx, "solving with gonum simplex",
			slog.Int("rows", len(b)),
			slog.Int("cols", len(c)),
		)
	}

	xs := make([]float64, len(c))
	if len(b) > 0 {
		_, xs, err = lp.Simplex(c, A, b, tol, nil)
		if err != nil {
			return nil, simplexError(err)
		}
	} else {
		// no rows left, every column is at its lower bound
		for j := range c {
			if c[j] < 0 {
				return nil, ErrUnbounded
			}
		}
	}

	full := make([]float64, sf.ncols)
	for k, j := range cols {
		full[j] = xs[k]
	}
	x := make([]float64, len(p.Variables))
	for j := range p.Variables {
		x[j] = sf.shift[j]
		if sf.col[j] >= 0 {
			x[j] += full[sf.col[j]]
		}
	}
	if err := checkRows(p, x); err != nil {
		return nil, err
	}

	sol := &Solution{
		Status:    StatusOptimal,
		Objective: p.Evaluate(x),
		Primal:    x,
	}
	if opts.Duals {
		y, err := solveDual(c, A, b, tol)
		if err != nil {
			return nil, err
		}
		sol.RowDuals = make([]float64, len(p.Constraints))
		for i, r := range sf.row {
			if r >= 0 {
				sol.RowDuals[i] = y[r]
			}
		}
		sol.ReducedCosts = reducedCosts(p, sol.RowDuals)
	}
	return sol, nil
}

func simplexError(err error) error {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return ErrInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return ErrUnbounded
	default:
		return &SolverError{Solver: gonumName, Err: err}
	}
}

func newStandardForm(p *Problem) (*standardForm, error) {
	sf := &standardForm{
		shift: make([]float64, len(p.Variables)),
		col:   make([]int, len(p.Variables)),
		row:   make([]int, len(p.Constraints)),
	}
	var uppers []int
	for j, v := range p.Variables {
		if math.IsInf(v.Lower, -1) {
			return nil, &SolverError{Solver: gonumName, Err: fmt.Errorf("%w: free variable %s", ErrNotImplemented, v.Name)}
		}
		sf.shift[j] = v.Lower
		if v.Lower == v.Upper {
			sf.col[j] = -1
			continue
		}
		if v.Upper < v.Lower {
			return nil, ErrInfeasible
		}
		sf.col[j] = sf.ncols
		sf.ncols++
		if !math.IsInf(v.Upper, 1) {
			uppers = append(uppers, j)
		}
	}
	sf.c = make([]float64, sf.ncols)
	for _, t := range p.Objective {
		if k := sf.col[t.Var.Index]; k >= 0 {
			sf.c[k] += t.Coef
		}
	}

	type pending struct {
		coefs map[int]float64
		slack float64
		rhs   float64
	}
	var rows []pending
	for i, con := range p.Constraints {
		r := pending{coefs: make(map[int]float64, len(con.Terms)), rhs: con.RHS}
		for _, t := range con.Terms {
			r.rhs -= t.Coef * sf.shift[t.Var.Index]
			if k := sf.col[t.Var.Index]; k >= 0 {
				r.coefs[k] += t.Coef
			}
		}
		if len(r.coefs) == 0 {
			if !satisfied(con.Sense, 0, r.rhs) {
				return nil, ErrInfeasible
			}
			sf.row[i] = -1
			continue
		}
		switch con.Sense {
		case SenseLE:
			r.slack = 1
		case SenseGE:
			r.slack = -1
		}
		sf.row[i] = len(rows)
		rows = append(rows, r)
	}
	for _, j := range uppers {
		v := p.Variables[j]
		rows = append(rows, pending{coefs: map[int]float64{sf.col[j]: 1}, slack: 1, rhs: v.Upper - v.Lower})
	}

	nslack := 0
	for _, r := range rows {
		if r.slack != 0 {
			nslack++
		}
	}
	width := sf.ncols + nslack
	sf.c = append(sf.c, make([]float64, nslack)...)
	sf.rows = make([][]float64, len(rows))
	sf.b = make([]float64, len(rows))
	next := sf.ncols
	for i, r := range rows {
		vec := make([]float64, width)
		for k, a := range r.coefs {
			vec[k] = a
		}
		if r.slack != 0 {
			vec[next] = r.slack
			next++
		}
		sf.rows[i] = vec
		sf.b[i] = r.rhs
	}
	sf.ncols = width
	return sf, nil
}

// dropDependentRows removes equality rows that are linear combinations of
// earlier rows. Consistency of the dropped rows is checked after solving.
func (sf *standardForm) dropDependentRows() {
	var basis [][]float64
	keep := make([]bool, len(sf.rows))
	for i, r := range sf.rows {
		v := make([]float64, len(r))
		copy(v, r)
		for _, q := range basis {
			floats.AddScaled(v, -floats.Dot(v, q), q)
		}
		n := floats.Norm(v, 2)
		if n <= 1e-9*floats.Norm(r, 2) {
			continue
		}
		floats.Scale(1/n, v)
		basis = append(basis, v)
		keep[i] = true
	}
	var rows [][]float64
	var b []float64
	remap := make([]int, len(sf.rows))
	for i := range sf.rows {
		if !keep[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(rows)
		rows = append(rows, sf.rows[i])
		b = append(b, sf.b[i])
	}
	for i, r := range sf.row {
		if r >= 0 {
			sf.row[i] = remap[r]
		}
	}
	sf.rows, sf.b = rows, b
}

// compact removes columns without any entry. They stay at zero, which is
// optimal for a non negative cost. A negative cost makes the problem
// unbounded, which the simplex reports through the returned columns.
func (sf *standardForm) compact() ([]float64, *mat.Dense, []float64, []int) {
	var cols []int
	for j := 0; j < sf.ncols; j++ {
		used := false
		for _, r := range sf.rows {
			if r[j] != 0 {
				used = true
				break
			}
		}
		if used || sf.c[j] < 0 {
			cols = append(cols, j)
		}
	}
	c := make([]float64, len(cols))
	for k, j := range cols {
		c[k] = sf.c[j]
	}
	if len(sf.rows) == 0 {
		return c, nil, nil, cols
	}
	data := make([]float64, 0, len(sf.rows)*len(cols))
	for _, r := range sf.rows {
		for _, j := range cols {
			data = append(data, r[j])
		}
	}
	return c, mat.NewDense(len(sf.rows), len(cols), data), sf.b, cols
}

// solveDual solves max b'y s.t. A'y <= c with y free, written in standard
// form with y = yp - yn and slacks.
func solveDual(c []float64, A *mat.Dense, b []float64, tol float64) ([]float64, error) {
	if A == nil {
		return nil, nil
	}
	m, n := A.Dims()
	cd := make([]float64, 2*m+n)
	for i := 0; i < m; i++ {
		cd[i] = -b[i]
		cd[m+i] = b[i]
	}
	ad := mat.NewDense(n, 2*m+n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			a := A.At(i, j)
			ad.Set(j, i, a)
			ad.Set(j, m+i, -a)
		}
		ad.Set(j, 2*m+j, 1)
	}
	_, z, err := lp.Simplex(cd, ad, c, tol, nil)
	if err != nil {
		return nil, &SolverError{Solver: gonumName, Status: "dual", Err: err}
	}
	y := make([]float64, m)
	for i := range y {
		y[i] = z[i] - z[m+i]
	}
	return y, nil
}

func satisfied(s Sense, lhs, rhs float64) bool {
	slack := feasibilityTol * math.Max(1, math.Abs(rhs))
	switch s {
	case SenseLE:
		return lhs <= rhs+slack
	case SenseGE:
		return lhs >= rhs-slack
	default:
		return math.Abs(lhs-rhs) <= slack
	}
}

func checkRows(p *Problem, x []float64) error {
	for _, c := range p.Constraints {
		lhs := 0.0
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var.Index]
		}
		if !satisfied(c.Sense, lhs, c.RHS) {
			return ErrInfeasible
		}
	}
	return nil
}

// reducedCosts returns c_j minus the dual weighted column of every variable.
func reducedCosts(p *Problem, duals []float64) []float64 {
	rc := make([]float64, len(p.Variables))
	for _, t := range p.Objective {
		rc[t.Var.Index] += t.Coef
	}
	for i, c := range p.Constraints {
		for _, t := range c.Terms {
			rc[t.Var.Index] -= t.Coef * duals[i]
		}
	}
	return rc
}
