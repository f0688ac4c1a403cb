package types

// Results are the solved decision values mapped back onto the graph.
type Results struct {
	Solver    string  `json:"solver"`
	Status    string  `json:"status"`
	Objective float64 `json:"objective"`
	// Entities is keyed by UID.Key().
	Entities map[string]*EntityResult `json:"entities"`
}

// EntityResult holds the quantities of one entity. Series are indexed like
// the simulation timesteps.
type EntityResult struct {
	UID     UID                  `json:"uid"`
	Series  map[string][]float64 `json:"series,omitempty"`
	Scalars map[string]float64   `json:"scalars,omitempty"`
}

// Entity returns the result of an entity, or nil.
func (r *Results) Entity(uid UID) *EntityResult {
	if r == nil {
		return nil
	}
	return r.Entities[uid.Key()]
}

// SeriesOf returns a per timestep quantity of an entity.
func (r *Results) SeriesOf(uid UID, quantity string) []float64 {
	e := r.Entity(uid)
	if e == nil {
		return nil
	}
	return e.Series[quantity]
}

// ScalarOf returns a scalar quantity of an entity.
func (r *Results) ScalarOf(uid UID, quantity string) (float64, bool) {
	e := r.Entity(uid)
	if e == nil {
		return 0, false
	}
	v, ok := e.Scalars[quantity]
	return v, ok
}

// Quantity names used in results.
const (
	QuantityExcess          = "excess"
	QuantityShortage        = "shortage"
	QuantitySOC             = "soc"
	QuantityInvestCapacity  = "invest:capacity"
	QuantityDualPrefix      = "dual:"
	QuantityReducedCostPref = "rc:"
)

// InQuantity names the flow from a bus into a component.
func InQuantity(bus UID) string { return "in:" + bus.String() }

// OutQuantity names the flow from a component into a bus.
func OutQuantity(bus UID) string { return "out:" + bus.String() }

// InvestInQuantity names the added capacity of an input link.
func InvestInQuantity(bus UID) string { return "invest:in:" + bus.String() }

// InvestOutQuantity names the added capacity of an output link.
func InvestOutQuantity(bus UID) string { return "invest:out:" + bus.String() }
