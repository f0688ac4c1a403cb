package types

import (
	"encoding/json"
	"strings"
)

// Region groups entities. It is bookkeeping only; the optimization does not
// use it.
type Region struct {
	Name string `json:"name"`
	// Geom is the region geometry as GeoJSON.
	Geom     json.RawMessage `json:"geom,omitempty"`
	Entities []UID           `json:"entities,omitempty"`

	code string
}

// NewRegion creates a region with an optional explicit code.
func NewRegion(name, code string, geom json.RawMessage) *Region {
	return &Region{Name: name, Geom: geom, code: code}
}

// AddEntities adds the entities to the region and the region to each entity.
func (r *Region) AddEntities(entities ...Entity) {
	for _, e := range entities {
		r.Entities = append(r.Entities, e.UID())
		b := e.base()
		found := false
		for _, name := range b.Regions {
			if name == r.Name {
				found = true
				break
			}
		}
		if !found {
			b.Regions = append(b.Regions, r.Name)
		}
	}
}

// Code returns the explicit code or derives one from the name: the first
// three characters of each of the first two name segments, capitalized.
func (r *Region) Code() string {
	if r.code != "" {
		return r.code
	}
	parts := strings.SplitN(strings.ReplaceAll(r.Name, "_", " "), " ", 2)
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		rs := []rune(part)
		sb.WriteString(strings.ToUpper(string(rs[:1])))
		end := min(len(rs), 3)
		sb.WriteString(string(rs[1:end]))
	}
	r.code = sb.String()
	return r.code
}

// MarshalJSON includes the derived code so a restored region keeps it.
func (r *Region) MarshalJSON() ([]byte, error) {
	type plain Region
	return json.Marshal(struct {
		*plain
		Code string `json:"code,omitempty"`
	}{plain: (*plain)(r), Code: r.Code()})
}

func (r *Region) UnmarshalJSON(b []byte) error {
	type plain Region
	aux := struct {
		*plain
		Code string `json:"code,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.code = aux.Code
	return nil
}
