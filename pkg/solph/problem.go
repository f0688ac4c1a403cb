package solph

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gridsolph/gridsolph/pkg/types"
)

// ErrDuplicateName is returned when two variables or constraints end up with
// the same name after sanitizing.
var ErrDuplicateName = errors.New("duplicate name in problem")

// Sense is the relation of a constraint row.
type Sense int

const (
	SenseEQ Sense = iota
	SenseLE
	SenseGE
)

func (s Sense) String() string {
	switch s {
	case SenseLE:
		return "<="
	case SenseGE:
		return ">="
	default:
		return "="
	}
}

// tag locates a variable or constraint on the graph for result extraction.
// Owner is the UID.Key of the entity, Step is the index into the timesteps,
// or -1 for scalars.
type tag struct {
	Owner    string
	Quantity string
	Step     int
}

// Variable is a column of the problem.
type Variable struct {
	Name  string
	Lower float64
	Upper float64
	Index int

	tag tag
}

// Term is a coefficient times a variable.
type Term struct {
	Coef float64
	Var  *Variable
}

// Constraint is a row of the problem.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
	Index int

	tag tag
}

// Problem is a linear program: minimize Objective + Constant subject to
// Constraints and the variable bounds.
type Problem struct {
	Name        string
	Variables   []*Variable
	Constraints []*Constraint
	Objective   []Term
	// Constant is added to the objective value. It is emitted through a
	// variable fixed at one since the LP format has no constants.
	Constant float64

	names  map[string]struct{}
	owners []types.UID
	steps  int
}

func newProblem(name string) *Problem {
	return &Problem{Name: name, names: make(map[string]struct{})}
}

func (p *Problem) claim(name string) error {
	if _, ok := p.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	p.names[name] = struct{}{}
	return nil
}

func (p *Problem) addVariable(name string, lower, upper float64, t tag) (*Variable, error) {
	if err := p.claim(name); err != nil {
		return nil, err
	}
	v := &Variable{Name: name, Lower: lower, Upper: upper, Index: len(p.Variables), tag: t}
	p.Variables = append(p.Variables, v)
	return v, nil
}

func (p *Problem) addConstraint(name string, terms []Term, sense Sense, rhs float64, t tag) (*Constraint, error) {
	terms = mergeTerms(terms)
	full := constraintPrefix(sense) + name + "_"
	if len(terms) == 0 {
		// empty rows are not emitted
		if !satisfied(sense, 0, rhs) {
			return nil, fmt.Errorf("%w: %s cannot hold", ErrInfeasible, full)
		}
		return nil, nil
	}
	if err := p.claim(full); err != nil {
		return nil, err
	}
	c := &Constraint{Name: full, Terms: terms, Sense: sense, RHS: rhs, Index: len(p.Constraints), tag: t}
	p.Constraints = append(p.Constraints, c)
	return c, nil
}

func constraintPrefix(s Sense) string {
	switch s {
	case SenseLE:
		return "c_u_"
	case SenseGE:
		return "c_l_"
	default:
		return "c_e_"
	}
}

// mergeTerms sums the coefficients of repeated variables, keeping the order
// of first appearance, and drops zero coefficients.
func mergeTerms(terms []Term) []Term {
	if len(terms) == 0 {
		return nil
	}
	pos := make(map[*Variable]int, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if i, ok := pos[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(out)
		out = append(out, t)
	}
	n := 0
	for _, t := range out {
		if t.Coef != 0 {
			out[n] = t
			n++
		}
	}
	return out[:n]
}

// Variable returns the variable with the given name.
func (p *Problem) Variable(name string) *Variable {
	for _, v := range p.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Constraint returns the constraint with the given full name.
func (p *Problem) Constraint(name string) *Constraint {
	for _, c := range p.Constraints {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ObjectiveCoef returns the objective coefficient of a variable.
func (p *Problem) ObjectiveCoef(v *Variable) float64 {
	for _, t := range p.Objective {
		if t.Var == v {
			return t.Coef
		}
	}
	return 0
}

// Evaluate returns the objective value for the given column values.
func (p *Problem) Evaluate(x []float64) float64 {
	obj := p.Constant
	for _, t := range p.Objective {
		obj += t.Coef * x[t.Var.Index]
	}
	return obj
}

// name builds "<family>(<parts joined by _>)" with characters that the LP
// format does not accept replaced by underscores.
func name(family string, parts ...string) string {
	return family + "(" + sanitize(strings.Join(parts, "_")) + ")"
}

func sanitize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

var inf = math.Inf(1)
