package types

const (
	DefaultSolver    = "glpk"
	DefaultObjective = "minimize_cost"
)

// ObjectiveOptions select the objective strategy and which entity kinds
// contribute cost and revenue terms. Empty CostObjects means every kind.
type ObjectiveOptions struct {
	Function       string `json:"function"`
	CostObjects    []Kind `json:"costObjects,omitempty"`
	RevenueObjects []Kind `json:"revenueObjects,omitempty"`
}

// Features are switches that apply to every entity of a kind for one model
// build.
type Features struct {
	Investment bool `json:"investment,omitempty"`
}

// Simulation holds the parameters needed to build and solve a model.
type Simulation struct {
	Solver    string           `json:"solver"`
	Debug     bool             `json:"debug,omitempty"`
	Verbose   bool             `json:"verbose,omitempty"`
	Duals     bool             `json:"duals,omitempty"`
	Objective ObjectiveOptions `json:"objective"`
	Timesteps []int            `json:"timesteps"`
	// Relaxed relaxes integer variables. The models built today are pure LPs
	// so it only affects how the problem is handed to MILP capable solvers.
	Relaxed     bool              `json:"relaxed,omitempty"`
	SolveKwargs map[string]string `json:"solveKwargs,omitempty"`
	Features    map[Kind]Features `json:"features,omitempty"`
}

// NewSimulation applies defaults and validates the simulation.
func NewSimulation(s Simulation) (Simulation, error) {
	if s.Solver == "" {
		s.Solver = DefaultSolver
	}
	if s.Objective.Function == "" {
		s.Objective.Function = DefaultObjective
	}
	if err := s.Validate(); err != nil {
		return Simulation{}, err
	}
	return s, nil
}

// Validate checks that the simulation can drive a model build.
func (s Simulation) Validate() error {
	if len(s.Timesteps) == 0 {
		return ErrNoTimesteps
	}
	return nil
}

// Feature returns the feature switches for a kind.
func (s Simulation) Feature(kind Kind) Features {
	return s.Features[kind]
}

// WithFeature returns a copy of the simulation with the features of kind
// replaced. The receiver's map is not modified.
func (s Simulation) WithFeature(kind Kind, f Features) Simulation {
	features := make(map[Kind]Features, len(s.Features)+1)
	for k, v := range s.Features {
		features[k] = v
	}
	features[kind] = f
	s.Features = features
	return s
}
