package envelope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
)

// Decoded is one record resolved against its writer schema.
type Decoded struct {
	Envelope Envelope

	// Writer carries the subject and version the record was written under.
	Writer *schema.Definition
	Record schema.Record
}

// Codec decodes wire-format records using writer schemas from the registry.
// Parsed schemas are cached by id; the registry client caches the lookups.
type Codec struct {
	registry schema_registry.Registry

	mu          sync.RWMutex
	definitions map[int]*schema.Definition
}

// NewCodec returns a Codec backed by registry.
func NewCodec(registry schema_registry.Registry) *Codec {
	return &Codec{
		registry:    registry,
		definitions: make(map[int]*schema.Definition),
	}
}

// SubjectFor is the value subject of topic under the topic-name strategy.
func SubjectFor(topic string) string {
	return topic + "-value"
}

// Decode parses data from topic, resolves its writer schema and decodes the
// payload. The writer's version is found by looking the schema up under the
// topic's value subject.
func (c *Codec) Decode(ctx context.Context, topic string, data []byte) (*Decoded, error) {
	env, err := Parse(data)
	if err != nil {
		return nil, err
	}

	def, err := c.definition(ctx, env.SchemaID)
	if err != nil {
		return nil, err
	}

	subject := SubjectFor(topic)
	meta, err := c.registry.LookupSchema(ctx, subject, def.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %d under %s: %v", ErrSchemaNotFound, env.SchemaID, subject, err)
	}

	rec, err := def.Decode(env.Payload)
	if err != nil {
		return nil, err
	}

	return &Decoded{
		Envelope: env,
		Writer:   def.WithVersion(subject, meta.Version, env.SchemaID),
		Record:   rec,
	}, nil
}

func (c *Codec) definition(ctx context.Context, id int) (*schema.Definition, error) {
	c.mu.RLock()
	def, ok := c.definitions[id]
	c.mu.RUnlock()
	if ok {
		return def, nil
	}

	raw, err := c.registry.GetSchemaByID(ctx, id)
	if err != nil {
		if errors.Is(err, schema_registry.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrSchemaNotFound, id)
		}
		return nil, fmt.Errorf("resolve schema %d: %w", id, err)
	}

	def, err = schema.NewDefinition(raw)
	if err != nil {
		return nil, fmt.Errorf("schema %d: %w", id, err)
	}

	c.mu.Lock()
	c.definitions[id] = def
	c.mu.Unlock()
	return def, nil
}
