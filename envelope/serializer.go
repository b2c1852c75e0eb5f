package envelope

import (
	"context"
	"fmt"
	"sync"

	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
)

// SchemaTypeAvro is the registry schemaType for Avro.
const SchemaTypeAvro = "AVRO"

// Serializer encodes records under one schema and prepends the wire header.
// The schema is registered under the subject on first use unless the
// definition already carries its id.
type Serializer struct {
	registry   schema_registry.Registry
	subject    string
	definition *schema.Definition

	mu       sync.Mutex
	schemaID int
}

// SerializerConfig holds configuration for Serializer.
type SerializerConfig struct {
	Registry   schema_registry.Registry
	Subject    string
	Definition *schema.Definition
}

// NewSerializer creates a registry-aware serializer.
func NewSerializer(config SerializerConfig) (*Serializer, error) {
	if config.Registry == nil {
		return nil, fmt.Errorf("schema registry is required")
	}
	if config.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if config.Definition == nil {
		return nil, fmt.Errorf("schema is required")
	}

	return &Serializer{
		registry:   config.Registry,
		subject:    config.Subject,
		definition: config.Definition,
	}, nil
}

// Serialize encodes rec and prepends the header for the registered schema id.
func (s *Serializer) Serialize(ctx context.Context, rec schema.Record) ([]byte, error) {
	id, err := s.register(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := s.definition.Encode(rec)
	if err != nil {
		return nil, err
	}

	return Encode(id, payload), nil
}

func (s *Serializer) register(ctx context.Context) (int, error) {
	if s.definition.ID != 0 {
		return s.definition.ID, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaID != 0 {
		return s.schemaID, nil
	}

	id, err := s.registry.RegisterSchema(ctx, s.subject, s.definition.Raw, SchemaTypeAvro)
	if err != nil {
		return 0, fmt.Errorf("failed to register schema: %w", err)
	}
	s.schemaID = id
	return id, nil
}
