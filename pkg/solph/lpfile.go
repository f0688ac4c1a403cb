package solph

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// oneVar stands in for the objective constant since the LP format only knows
// terms.
const oneVar = "ONE_VAR_CONSTANT"

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func formatCoef(v float64) string {
	if v < 0 {
		return formatNumber(v)
	}
	return "+" + formatNumber(v)
}

// WriteLP writes the problem in CPLEX LP format. The output only depends on
// the problem so identical problems produce identical bytes.
func WriteLP(w io.Writer, p *Problem) error {
	_, err := writeLP(w, p)
	return err
}

// writeLP writes the problem and returns the column names in order of first
// appearance, which is how readers of the format number columns.
func writeLP(w io.Writer, p *Problem) ([]string, error) {
	bw := bufio.NewWriter(w)
	var cols []string
	seen := make(map[string]bool, len(p.Variables)+1)
	col := func(n string) {
		if !seen[n] {
			seen[n] = true
			cols = append(cols, n)
		}
	}
	needOne := p.Constant != 0 || len(p.Objective) == 0 || len(p.Constraints) == 0

	fmt.Fprintf(bw, "\\* Problem: %s *\\\n\n", p.Name)
	bw.WriteString("min\nobj:\n")
	for _, t := range p.Objective {
		fmt.Fprintf(bw, "%s %s\n", formatCoef(t.Coef), t.Var.Name)
		col(t.Var.Name)
	}
	if needOne {
		fmt.Fprintf(bw, "%s %s\n", formatCoef(p.Constant), oneVar)
		col(oneVar)
	}

	bw.WriteString("\ns.t.\n\n")
	for _, c := range p.Constraints {
		fmt.Fprintf(bw, "%s:\n", c.Name)
		for _, t := range c.Terms {
			fmt.Fprintf(bw, "%s %s\n", formatCoef(t.Coef), t.Var.Name)
			col(t.Var.Name)
		}
		fmt.Fprintf(bw, "%s %s\n\n", c.Sense, formatNumber(c.RHS))
	}
	if len(p.Constraints) == 0 {
		fmt.Fprintf(bw, "c_e_%s_:\n+1 %s\n= 1\n\n", oneVar, oneVar)
	}

	bw.WriteString("bounds\n")
	for _, v := range p.Variables {
		if v.Lower == v.Upper {
			fmt.Fprintf(bw, "   %s = %s\n", v.Name, formatNumber(v.Lower))
		} else {
			fmt.Fprintf(bw, "   %s <= %s <= %s\n", formatNumber(v.Lower), v.Name, formatNumber(v.Upper))
		}
		col(v.Name)
	}
	if needOne {
		fmt.Fprintf(bw, "   %s = 1\n", oneVar)
	}
	bw.WriteString("end\n")
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return cols, nil
}

// WriteLPFile writes the problem to dir/file, creating dir if needed, and
// returns the path written.
func WriteLPFile(p *Problem, dir, file string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create lp directory: %w", err)
	}
	path := filepath.Join(dir, file)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create lp file: %w", err)
	}
	if err := WriteLP(f, p); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write lp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close lp file: %w", err)
	}
	return path, nil
}
