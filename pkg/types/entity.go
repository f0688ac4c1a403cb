package types

import (
	"encoding/json"
	"math"
	"strings"
)

// Kind identifies the variant of an entity.
type Kind string

const (
	KindBus         Kind = "bus"
	KindTransformer Kind = "transformer"
	KindSource      Kind = "source"
	KindSink        Kind = "sink"
	KindStorage     Kind = "storage"
	KindTransport   Kind = "transport"
)

// Kinds lists every entity kind in a fixed order.
var Kinds = []Kind{KindBus, KindTransformer, KindSource, KindSink, KindStorage, KindTransport}

// CommodityHeat is the bus type that requires a temperature.
const CommodityHeat = "heat"

// UID is the composite identifier of an entity.
type UID []string

// NewUID builds a UID from its parts.
func NewUID(parts ...string) UID {
	return UID(parts)
}

// String joins the parts with an underscore. It is used in problem names
// and messages, different identifiers may share it.
func (u UID) String() string {
	return strings.Join(u, "_")
}

// Key encodes the parts so that different identifiers never share a key.
// It is used for indexing entities and results.
func (u UID) Key() string {
	b, _ := json.Marshal([]string(u))
	return string(b)
}

// Equal reports whether both identifiers have the same parts.
func (u UID) Equal(o UID) bool {
	if len(u) != len(o) {
		return false
	}
	for i := range u {
		if u[i] != o[i] {
			return false
		}
	}
	return true
}

// Limit is an upper bound on a flow. Unbounded is encoded as JSON null.
type Limit float64

// Unbounded is the absence of a bound.
var Unbounded = Limit(math.Inf(1))

// IsUnbounded reports whether the limit is infinite.
func (l Limit) IsUnbounded() bool {
	return math.IsInf(float64(l), 1)
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnbounded() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(l))
}

func (l *Limit) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = Unbounded
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*l = Limit(f)
	return nil
}

// Limits is a convenience for building bound arrays.
func Limits(values ...float64) []Limit {
	out := make([]Limit, len(values))
	for i, v := range values {
		out[i] = Limit(v)
	}
	return out
}

// Entity is a node of the energy system graph.
type Entity interface {
	UID() UID
	Kind() Kind
	Validate() error
	base() *Base
}

// Base holds the fields shared by every entity.
type Base struct {
	ID UID `json:"uid"`
	// Regions are the names of the regions the entity was added to.
	Regions []string `json:"regions,omitempty"`
}

func (b *Base) UID() UID    { return b.ID }
func (b *Base) base() *Base { return b }

func (b *Base) validate() error {
	if len(b.ID) == 0 || b.ID.String() == "" {
		return &ConfigError{Entity: b.ID, Err: ErrEmptyUID}
	}
	return nil
}

// Links are the input and output connections of a component together with
// their optional capacity bounds.
type Links struct {
	Inputs  []UID   `json:"inputs,omitempty"`
	Outputs []UID   `json:"outputs,omitempty"`
	InMax   []Limit `json:"inMax,omitempty"`
	OutMax  []Limit `json:"outMax,omitempty"`
}

// InBound returns the bound of input i and whether one was provided.
func (l Links) InBound(i int) (Limit, bool) {
	if l.InMax == nil {
		return Unbounded, false
	}
	return l.InMax[i], true
}

// OutBound returns the bound of output i and whether one was provided.
func (l Links) OutBound(i int) (Limit, bool) {
	if l.OutMax == nil {
		return Unbounded, false
	}
	return l.OutMax[i], true
}

func (l Links) validate(uid UID) error {
	if l.InMax != nil && len(l.InMax) != len(l.Inputs) {
		return configErr(uid, ErrBoundLength, "inMax has %d entries for %d inputs", len(l.InMax), len(l.Inputs))
	}
	if l.OutMax != nil && len(l.OutMax) != len(l.Outputs) {
		return configErr(uid, ErrBoundLength, "outMax has %d entries for %d outputs", len(l.OutMax), len(l.Outputs))
	}
	return nil
}

func (l Links) count(uid UID, minIn, maxIn, minOut, maxOut int) error {
	if len(l.Inputs) < minIn || (maxIn >= 0 && len(l.Inputs) > maxIn) {
		return configErr(uid, ErrLinkCount, "%d inputs", len(l.Inputs))
	}
	if len(l.Outputs) < minOut || (maxOut >= 0 && len(l.Outputs) > maxOut) {
		return configErr(uid, ErrLinkCount, "%d outputs", len(l.Outputs))
	}
	return nil
}

// Costs are the economic parameters of a component.
type Costs struct {
	OpexVar  float64 `json:"opexVar,omitempty"`
	OpexFix  float64 `json:"opexFix,omitempty"`
	Capex    float64 `json:"capex,omitempty"`
	Lifetime float64 `json:"lifetime,omitempty"`
	WACC     float64 `json:"wacc,omitempty"`
	CRF      float64 `json:"crf,omitempty"`
}

// Annuity is the factor that turns the capital cost into a yearly cost.
func (c Costs) Annuity() float64 {
	switch {
	case c.CRF > 0:
		return c.CRF
	case c.Lifetime > 0 && c.WACC > 0:
		return CapitalRecoveryFactor(c.WACC, c.Lifetime)
	case c.Lifetime > 0:
		return 1 / c.Lifetime
	default:
		return 1
	}
}

// CapitalRecoveryFactor returns wacc*(1+wacc)^n / ((1+wacc)^n - 1).
func CapitalRecoveryFactor(wacc, lifetime float64) float64 {
	f := math.Pow(1+wacc, lifetime)
	return wacc * f / (f - 1)
}

// Bus is a commodity balance point.
type Bus struct {
	Base
	// Type is the commodity, e.g. "el", "gas" or "heat".
	Type string `json:"type"`
	// Price makes the bus a priced supply: its outflows are charged at Price
	// and no balance is enforced.
	Price float64 `json:"price,omitempty"`
	// Unbalanced disables the balance constraint.
	Unbalanced    bool    `json:"unbalanced,omitempty"`
	Excess        bool    `json:"excess,omitempty"`
	ExcessCosts   float64 `json:"excessCosts,omitempty"`
	Shortage      bool    `json:"shortage,omitempty"`
	ShortageCosts float64 `json:"shortageCosts,omitempty"`

	// Temperature is required for heat buses. One entry applies to every
	// timestep.
	Temperature       []float64 `json:"temperature,omitempty"`
	ReturnTemperature []float64 `json:"returnTemperature,omitempty"`
}

func (b *Bus) Kind() Kind { return KindBus }

// Balanced reports whether the bus enforces inflow equals outflow.
func (b *Bus) Balanced() bool {
	return !b.Unbalanced && b.Price == 0
}

func (b *Bus) Validate() error {
	if err := b.Base.validate(); err != nil {
		return err
	}
	if b.Type == CommodityHeat && len(b.Temperature) == 0 {
		return configErr(b.ID, ErrMissingTemperature, "")
	}
	return nil
}

// Transformer converts its inputs into its outputs with constant
// efficiencies. With one input Eta has one entry per output, with one output
// Eta has one entry per input.
type Transformer struct {
	Base
	Links
	Costs
	Eta         []float64 `json:"eta"`
	AddInLimit  float64   `json:"addInLimit,omitempty"`
	AddOutLimit float64   `json:"addOutLimit,omitempty"`
}

func (t *Transformer) Kind() Kind { return KindTransformer }

func (t *Transformer) Validate() error {
	if err := t.Base.validate(); err != nil {
		return err
	}
	if err := t.Links.count(t.ID, 1, -1, 1, -1); err != nil {
		return err
	}
	if err := t.Links.validate(t.ID); err != nil {
		return err
	}
	switch {
	case len(t.Inputs) == 1:
		if len(t.Eta) != len(t.Outputs) {
			return configErr(t.ID, ErrEfficiencyLength, "%d efficiencies for %d outputs", len(t.Eta), len(t.Outputs))
		}
	case len(t.Outputs) == 1:
		if len(t.Eta) != len(t.Inputs) {
			return configErr(t.ID, ErrEfficiencyLength, "%d efficiencies for %d inputs", len(t.Eta), len(t.Inputs))
		}
	default:
		return configErr(t.ID, ErrLinkCount, "%d inputs and %d outputs", len(t.Inputs), len(t.Outputs))
	}
	return nil
}

// Source feeds one or more buses.
type Source struct {
	Base
	Links
	Costs
	// Val is a profile normalized to the nominal output (OutMax, or 1 if no
	// bound is given). If Fixed the output equals the profile, otherwise the
	// profile caps it.
	Val         []float64 `json:"val,omitempty"`
	Fixed       bool      `json:"fixed,omitempty"`
	AddOutLimit float64   `json:"addOutLimit,omitempty"`
}

func (s *Source) Kind() Kind { return KindSource }

func (s *Source) Validate() error {
	if err := s.Base.validate(); err != nil {
		return err
	}
	if err := s.Links.count(s.ID, 0, 0, 1, -1); err != nil {
		return err
	}
	if err := s.Links.validate(s.ID); err != nil {
		return err
	}
	if s.Fixed && len(s.Val) == 0 {
		return configErr(s.ID, ErrMissingProfile, "fixed source")
	}
	return nil
}

// Sink draws from one or more buses. Val is an absolute demand per timestep.
type Sink struct {
	Base
	Links
	Costs
	Val []float64 `json:"val,omitempty"`
}

func (s *Sink) Kind() Kind { return KindSink }

func (s *Sink) Validate() error {
	if err := s.Base.validate(); err != nil {
		return err
	}
	if err := s.Links.count(s.ID, 1, -1, 0, 0); err != nil {
		return err
	}
	return s.Links.validate(s.ID)
}

// Storage charges from its input and discharges to its output.
type Storage struct {
	Base
	Links
	Costs
	CapMax float64 `json:"capMax"`
	// CapMin and CapInitial are fractions of CapMax.
	CapMin      float64 `json:"capMin,omitempty"`
	CapInitial  float64 `json:"capInitial,omitempty"`
	EtaIn       float64 `json:"etaIn"`
	EtaOut      float64 `json:"etaOut"`
	Loss        float64 `json:"loss,omitempty"`
	AddCapLimit float64 `json:"addCapLimit,omitempty"`
}

func (s *Storage) Kind() Kind { return KindStorage }

func (s *Storage) Validate() error {
	if err := s.Base.validate(); err != nil {
		return err
	}
	if err := s.Links.count(s.ID, 1, 1, 1, 1); err != nil {
		return err
	}
	if err := s.Links.validate(s.ID); err != nil {
		return err
	}
	if s.EtaIn <= 0 || s.EtaOut <= 0 {
		return configErr(s.ID, ErrInvalidParameter, "storage efficiencies must be positive")
	}
	return nil
}

// Transport is a directed, capacity limited link between two buses.
type Transport struct {
	Base
	Links
	Costs
	Eta []float64 `json:"eta"`
}

func (t *Transport) Kind() Kind { return KindTransport }

func (t *Transport) Validate() error {
	if err := t.Base.validate(); err != nil {
		return err
	}
	if err := t.Links.count(t.ID, 1, 1, 1, 1); err != nil {
		return err
	}
	if err := t.Links.validate(t.ID); err != nil {
		return err
	}
	if len(t.Eta) != 1 {
		return configErr(t.ID, ErrEfficiencyLength, "%d efficiencies", len(t.Eta))
	}
	return nil
}

// LinksOf returns the links of a component, or nil for a bus.
func LinksOf(e Entity) *Links {
	switch v := e.(type) {
	case *Transformer:
		return &v.Links
	case *Source:
		return &v.Links
	case *Sink:
		return &v.Links
	case *Storage:
		return &v.Links
	case *Transport:
		return &v.Links
	default:
		return nil
	}
}

// CostsOf returns the costs of a component, or nil for a bus.
func CostsOf(e Entity) *Costs {
	switch v := e.(type) {
	case *Transformer:
		return &v.Costs
	case *Source:
		return &v.Costs
	case *Sink:
		return &v.Costs
	case *Storage:
		return &v.Costs
	case *Transport:
		return &v.Costs
	default:
		return nil
	}
}

// UIDs collects the identifiers of the given buses for use as links.
func UIDs(buses ...*Bus) []UID {
	if len(buses) == 0 {
		return nil
	}
	out := make([]UID, len(buses))
	for i, b := range buses {
		out[i] = b.ID
	}
	return out
}
