package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUID(t *testing.T) {
	assert.Equal(t, "transport_bel_bgas", NewUID("transport", "bel", "bgas").String())
	assert.True(t, NewUID("a", "b").Equal(NewUID("a", "b")))
	assert.False(t, NewUID("a", "b").Equal(NewUID("a_b")))
	assert.False(t, NewUID("a").Equal(NewUID("b")))

	assert.Equal(t, NewUID("a", "b").String(), NewUID("a_b").String())
	assert.NotEqual(t, NewUID("a", "b").Key(), NewUID("a_b").Key())
	assert.NotEqual(t, NewUID("a_b", "c").Key(), NewUID("a", "b_c").Key())
	assert.Equal(t, NewUID("a", "b").Key(), NewUID("a", "b").Key())
}

func TestLimitJSON(t *testing.T) {
	b, err := json.Marshal(Links{Outputs: []UID{NewUID("bel")}, OutMax: []Limit{Unbounded}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"outputs":[["bel"]],"outMax":[null]}`, string(b))

	var l Links
	require.NoError(t, json.Unmarshal([]byte(`{"inMax":[null, 888]}`), &l))
	require.Len(t, l.InMax, 2)
	assert.True(t, l.InMax[0].IsUnbounded())
	assert.Equal(t, Limit(888), l.InMax[1])

	assert.Error(t, json.Unmarshal([]byte(`{"inMax":["x"]}`), &l))
}

func TestLinksBounds(t *testing.T) {
	l := Links{Inputs: []UID{NewUID("a")}, Outputs: []UID{NewUID("b")}, OutMax: Limits(5)}
	bound, ok := l.InBound(0)
	assert.False(t, ok)
	assert.True(t, bound.IsUnbounded())
	bound, ok = l.OutBound(0)
	assert.True(t, ok)
	assert.Equal(t, Limit(5), bound)
}

func TestAnnuity(t *testing.T) {
	assert.Equal(t, 0.08, Costs{CRF: 0.08, Lifetime: 20, WACC: 0.05}.Annuity())
	assert.InDelta(t, 0.0802426, Costs{Lifetime: 20, WACC: 0.05}.Annuity(), 1e-6)
	assert.Equal(t, 0.05, Costs{Lifetime: 20}.Annuity())
	assert.Equal(t, 1.0, Costs{}.Annuity())
}

func TestValidate(t *testing.T) {
	bel := NewUID("bel")
	bgas := NewUID("bgas")

	tests := []struct {
		name   string
		entity Entity
		err    error
	}{
		{"valid bus", &Bus{Base: Base{ID: bel}, Type: "el"}, nil},
		{"empty UID", &Bus{Type: "el"}, ErrEmptyUID},
		{"empty UID part", &Bus{Base: Base{ID: NewUID("")}}, ErrEmptyUID},
		{"heat bus without temperature", &Bus{Base: Base{ID: NewUID("bth")}, Type: CommodityHeat}, ErrMissingTemperature},
		{"heat bus", &Bus{Base: Base{ID: NewUID("bth")}, Type: CommodityHeat, Temperature: []float64{80}}, nil},
		{
			"Transformer One To Many",
			&Transformer{Base: Base{ID: NewUID("chp")}, Links: Links{Inputs: []UID{bgas}, Outputs: []UID{bel, NewUID("bth")}}, Eta: []float64{0.3, 0.5}},
			nil,
		},
		{
			"Transformer Many To One",
			&Transformer{Base: Base{ID: NewUID("mix")}, Links: Links{Inputs: []UID{bgas, NewUID("bbio")}, Outputs: []UID{bel}}, Eta: []float64{0.4, 0.3}},
			nil,
		},
		{
			"Transformer Many To Many",
			&Transformer{Base: Base{ID: NewUID("mm")}, Links: Links{Inputs: []UID{bgas, bel}, Outputs: []UID{bgas, bel}}, Eta: []float64{1, 1}},
			ErrLinkCount,
		},
		{
			"Transformer Efficiency Length",
			&Transformer{Base: Base{ID: NewUID("pp")}, Links: Links{Inputs: []UID{bgas}, Outputs: []UID{bel}}, Eta: []float64{0.5, 0.5}},
			ErrEfficiencyLength,
		},
		{
			"Transformer Bound Length",
			&Transformer{Base: Base{ID: NewUID("pp")}, Links: Links{Inputs: []UID{bgas}, Outputs: []UID{bel}, OutMax: Limits(1, 2)}, Eta: []float64{0.5}},
			ErrBoundLength,
		},
		{"source without outputs", &Source{Base: Base{ID: NewUID("wind")}}, ErrLinkCount},
		{"source with inputs", &Source{Base: Base{ID: NewUID("wind")}, Links: Links{Inputs: []UID{bel}, Outputs: []UID{bel}}}, ErrLinkCount},
		{"fixed source without profile", &Source{Base: Base{ID: NewUID("wind")}, Links: Links{Outputs: []UID{bel}}, Fixed: true}, ErrMissingProfile},
		{"sink", &Sink{Base: Base{ID: NewUID("demand")}, Links: Links{Inputs: []UID{bel}}, Val: []float64{1}}, nil},
		{"sink with outputs", &Sink{Base: Base{ID: NewUID("demand")}, Links: Links{Inputs: []UID{bel}, Outputs: []UID{bel}}}, ErrLinkCount},
		{"sink bound length", &Sink{Base: Base{ID: NewUID("demand")}, Links: Links{Inputs: []UID{bel}, InMax: Limits(1, 2)}}, ErrBoundLength},
		{
			"Storage",
			&Storage{Base: Base{ID: NewUID("battery")}, Links: Links{Inputs: []UID{bel}, Outputs: []UID{bel}}, CapMax: 10, EtaIn: 0.9, EtaOut: 0.9},
			nil,
		},
		{
			"Storage Zero Efficiency",
			&Storage{Base: Base{ID: NewUID("battery")}, Links: Links{Inputs: []UID{bel}, Outputs: []UID{bel}}, CapMax: 10, EtaIn: 0.9},
			ErrInvalidParameter,
		},
		{
			"Storage Two Inputs",
			&Storage{Base: Base{ID: NewUID("battery")}, Links: Links{Inputs: []UID{bel, bgas}, Outputs: []UID{bel}}, EtaIn: 1, EtaOut: 1},
			ErrLinkCount,
		},
		{"transport", &Transport{Base: Base{ID: NewUID("t")}, Links: Links{Inputs: []UID{bgas}, Outputs: []UID{bel}}, Eta: []float64{0.9}}, nil},
		{"transport without efficiency", &Transport{Base: Base{ID: NewUID("t")}, Links: Links{Inputs: []UID{bgas}, Outputs: []UID{bel}}}, ErrEfficiencyLength},
		{
			"Transport Bound Length",
			&Transport{Base: Base{ID: NewUID("t")}, Links: Links{Inputs: []UID{bgas}, Outputs: []UID{bel}, InMax: Limits()}, Eta: []float64{1}},
			ErrBoundLength,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.True(t, cerr.Entity.Equal(tt.entity.UID()))
		})
	}
}

func TestLinksAndCostsOf(t *testing.T) {
	tr := &Transformer{Costs: Costs{OpexVar: 3}}
	assert.Same(t, &tr.Links, LinksOf(tr))
	assert.Equal(t, 3.0, CostsOf(tr).OpexVar)
	assert.Nil(t, LinksOf(&Bus{}))
	assert.Nil(t, CostsOf(&Bus{}))
}

func TestEntityRecords(t *testing.T) {
	bel := &Bus{Base: Base{ID: NewUID("bel")}, Type: "el", Excess: true}
	bgas := &Bus{Base: Base{ID: NewUID("bgas")}, Type: "gas", Price: 70}
	pp := &Transformer{
		Base:  Base{ID: NewUID("pp", "gas")},
		Links: Links{Inputs: UIDs(bgas), Outputs: UIDs(bel), InMax: []Limit{Unbounded}, OutMax: Limits(100)},
		Costs: Costs{OpexVar: 50, Capex: 1000, CRF: 0.08},
		Eta:   []float64{0.58},
	}
	wind := &Source{
		Base:  Base{ID: NewUID("wind")},
		Links: Links{Outputs: UIDs(bel), OutMax: Limits(800)},
		Val:   []float64{0.5, 1},
		Fixed: true,
	}
	battery := &Storage{
		Base:   Base{ID: NewUID("battery")},
		Links:  Links{Inputs: UIDs(bel), Outputs: UIDs(bel)},
		CapMax: 10, EtaIn: 0.9, EtaOut: 0.8, Loss: 0.01,
	}
	demand := &Sink{Base: Base{ID: NewUID("demand")}, Links: Links{Inputs: UIDs(bel)}, Val: []float64{1, 2}}
	link := &Transport{Base: Base{ID: NewUID("transport", "bel", "bgas")}, Links: Links{Inputs: UIDs(bgas), Outputs: UIDs(bel)}, Eta: []float64{1}}
	entities := []Entity{bel, bgas, pp, wind, battery, demand, link}

	records, err := MarshalEntities(entities)
	require.NoError(t, err)
	require.Len(t, records, len(entities))
	assert.Equal(t, KindTransformer, records[2].Kind)

	b, err := json.Marshal(records)
	require.NoError(t, err)
	var decoded []EntityRecord
	require.NoError(t, json.Unmarshal(b, &decoded))

	got, err := UnmarshalEntities(decoded)
	require.NoError(t, err)
	assert.Equal(t, entities, got)

	t.Run("unknown kind", func(t *testing.T) {
		_, err := UnmarshalEntities([]EntityRecord{{Kind: "chp", Entity: json.RawMessage(`{}`)}})
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("invalid entity", func(t *testing.T) {
		_, err := UnmarshalEntities([]EntityRecord{{Kind: KindBus, Entity: json.RawMessage(`[]`)}})
		assert.Error(t, err)
	})
}
