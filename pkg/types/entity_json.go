package types

import (
	"encoding/json"
	"fmt"
)

// EntityRecord is the tagged JSON form of an entity.
type EntityRecord struct {
	Kind   Kind            `json:"kind"`
	Entity json.RawMessage `json:"entity"`
}

// NewEntity returns an empty entity of the given kind.
func NewEntity(kind Kind) (Entity, error) {
	switch kind {
	case KindBus:
		return &Bus{}, nil
	case KindTransformer:
		return &Transformer{}, nil
	case KindSource:
		return &Source{}, nil
	case KindSink:
		return &Sink{}, nil
	case KindStorage:
		return &Storage{}, nil
	case KindTransport:
		return &Transport{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// MarshalEntities encodes entities in order as tagged records.
func MarshalEntities(entities []Entity) ([]EntityRecord, error) {
	records := make([]EntityRecord, 0, len(entities))
	for _, e := range entities {
		b, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entity %s: %w", e.UID().String(), err)
		}
		records = append(records, EntityRecord{Kind: e.Kind(), Entity: b})
	}
	return records, nil
}

// UnmarshalEntities decodes tagged records back into entities, preserving
// their order.
func UnmarshalEntities(records []EntityRecord) ([]Entity, error) {
	entities := make([]Entity, 0, len(records))
	for i, r := range records {
		e, err := NewEntity(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		if err := json.Unmarshal(r.Entity, e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s entity %d: %w", r.Kind, i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}
