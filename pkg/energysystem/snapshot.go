package energysystem

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridsolph/gridsolph/pkg/types"
)

// SnapshotVersion is the schema version written by MarshalSnapshot.
const SnapshotVersion = 1

var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// Snapshot is the serialized form of an energy system.
type Snapshot struct {
	Version    int                  `json:"version"`
	Simulation types.Simulation     `json:"simulation"`
	Entities   []types.EntityRecord `json:"entities"`
	Regions    []*types.Region      `json:"regions,omitempty"`
	Results    *types.Results       `json:"results,omitempty"`
	TimeIndex  []time.Time          `json:"timeIndex,omitempty"`
}

// Snapshot captures the current content of the system.
func (es *EnergySystem) Snapshot() (*Snapshot, error) {
	records, err := types.MarshalEntities(es.entities)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Version:    SnapshotVersion,
		Simulation: es.sim,
		Entities:   records,
		Regions:    es.regions,
		Results:    es.results,
		TimeIndex:  es.timeIndex,
	}, nil
}

// MarshalSnapshot encodes the system as versioned JSON.
func MarshalSnapshot(es *EnergySystem) ([]byte, error) {
	s, err := es.Snapshot()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return b, nil
}

// UnmarshalSnapshot decodes a JSON snapshot. A missing version is read as
// the current one.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if s.Version < 0 || s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	return &s, nil
}

// DecodeSnapshot accepts a JSON or YAML document. YAML is converted to JSON
// first so both go through the same field names.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return UnmarshalSnapshot(trimmed)
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml snapshot: %w", err)
	}
	b, err := json.Marshal(jsonValue(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to convert yaml snapshot: %w", err)
	}
	return UnmarshalSnapshot(b)
}

// jsonValue turns the maps decoded by yaml into maps json can encode.
func jsonValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, e := range v {
			v[k] = jsonValue(e)
		}
		return v
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			m[fmt.Sprint(k)] = jsonValue(e)
		}
		return m
	case []interface{}:
		for i, e := range v {
			v[i] = jsonValue(e)
		}
		return v
	default:
		return v
	}
}

// FromSnapshot creates an energy system from a snapshot.
func FromSnapshot(s *Snapshot, solveDir string) (*EnergySystem, error) {
	entities, err := types.UnmarshalEntities(s.Entities)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Entities:   entities,
		Simulation: s.Simulation,
		Regions:    s.Regions,
		Results:    s.Results,
		TimeIndex:  s.TimeIndex,
		SolveDir:   solveDir,
	})
}
