package producer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"syreclabs.com/go/faker"

	"github.com/aalemi-dev/schema-evolution-lab/envelope"
	"github.com/aalemi-dev/schema-evolution-lab/kafka"
	"github.com/aalemi-dev/schema-evolution-lab/observability"
	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
	"github.com/aalemi-dev/schema-evolution-lab/tracer"
)

// fakerMu guards faker's package-level random source.
var fakerMu sync.Mutex

// LocalGenerator writes synthetic records in-process.
type LocalGenerator struct {
	registry   schema_registry.Registry
	broker     kafka.Broker
	maxRecords int

	tracer   tracer.Tracer
	observer observability.Observer
	logger   Logger
}

// NewLocalGenerator publishes through broker using writer schemas from registry.
func NewLocalGenerator(registry schema_registry.Registry, broker kafka.Broker, cfg Config) *LocalGenerator {
	maxRecords := cfg.MaxRecords
	if maxRecords == 0 {
		maxRecords = DefaultMaxRecords
	}
	return &LocalGenerator{registry: registry, broker: broker, maxRecords: maxRecords}
}

// WithTracer sets the tracer whose context is written into record headers.
func (g *LocalGenerator) WithTracer(t tracer.Tracer) *LocalGenerator {
	g.tracer = t
	return g
}

// WithObserver sets the observer notified after every run.
func (g *LocalGenerator) WithObserver(observer observability.Observer) *LocalGenerator {
	g.observer = observer
	return g
}

// WithLogger sets the logger.
func (g *LocalGenerator) WithLogger(logger Logger) *LocalGenerator {
	g.logger = logger
	return g
}

// Invoke resolves the writer schema for req and publishes RecordCount records.
// The same seed produces the same records.
func (g *LocalGenerator) Invoke(ctx context.Context, req Request) (err error) {
	start := time.Now()
	var written int64
	defer func() { observe(g.observer, "generate", req, start, written, err) }()

	if err := req.Validate(g.maxRecords); err != nil {
		return err
	}

	if g.tracer != nil {
		var span tracer.Span
		ctx, span = g.tracer.StartSpan(ctx, "producer.generate")
		span.SetAttributes(map[string]interface{}{
			"topic":        req.Topic,
			"record_count": req.RecordCount,
		})
		defer func() {
			span.RecordError(err)
			span.End()
		}()
	}

	subject := envelope.SubjectFor(req.Topic)
	version := req.Version
	if version == "" {
		version = schema_registry.Latest
	}
	meta, err := g.registry.GetSchemaBySubjectVersion(ctx, subject, version)
	if err != nil {
		return fmt.Errorf("resolve writer schema %s version %s: %w", subject, version, err)
	}
	def, err := schema.NewDefinition(meta.Schema)
	if err != nil {
		return err
	}
	def = def.WithVersion(subject, meta.Version, meta.ID)

	serializer, err := envelope.NewSerializer(envelope.SerializerConfig{
		Registry:   g.registry,
		Subject:    subject,
		Definition: def,
	})
	if err != nil {
		return err
	}

	records := Records(def, req.RecordCount, req.Seed)

	var headers map[string]string
	if g.tracer != nil {
		headers = g.tracer.GetCarrier(ctx)
	}

	for i, rec := range records {
		value, err := serializer.Serialize(ctx, rec)
		if err != nil {
			return fmt.Errorf("serialize record %d: %w", i, err)
		}
		if err := g.broker.Publish(ctx, req.Topic, strconv.Itoa(i), value, headers); err != nil {
			return fmt.Errorf("publish record %d: %w", i, err)
		}
		written += int64(len(value))
	}

	if g.logger != nil {
		g.logger.InfoWithContext(ctx, "Generated records", nil, map[string]interface{}{
			"topic":          req.Topic,
			"record_count":   req.RecordCount,
			"schema_version": meta.Version,
		})
	}
	return nil
}

// Records builds n synthetic records shaped by def, deterministically for a
// given seed.
func Records(def *schema.Definition, n int, seed int64) []schema.Record {
	fakerMu.Lock()
	defer fakerMu.Unlock()

	faker.Seed(seed)
	out := make([]schema.Record, n)
	for i := range out {
		out[i] = fakeValue(def.Root, "", 0).(map[string]interface{})
	}
	return out
}

// maxDepth stops recursive records from generating forever.
const maxDepth = 4

func fakeValue(t *schema.Type, field string, depth int) interface{} {
	switch t.Kind {
	case schema.KindNull:
		return nil
	case schema.KindBoolean:
		return faker.RandomInt(0, 1) == 1
	case schema.KindInt:
		return schema.FromPhysical(t, int32(fakeNumber(field)))
	case schema.KindLong:
		return schema.FromPhysical(t, int64(fakeNumber(field)))
	case schema.KindFloat:
		return float32(faker.RandomInt(0, 10000)) / 100
	case schema.KindDouble:
		return float64(faker.RandomInt(0, 10000)) / 100
	case schema.KindString:
		return fakeString(field)
	case schema.KindBytes:
		return schema.FromPhysical(t, []byte(faker.Lorem().Word()))
	case schema.KindFixed:
		return schema.FromPhysical(t, make([]byte, t.Size))
	case schema.KindEnum:
		return faker.RandomChoice(t.Symbols)
	case schema.KindArray:
		n := faker.RandomInt(1, 3)
		if depth >= maxDepth {
			n = 0
		}
		items := make([]interface{}, n)
		for i := range items {
			items[i] = fakeValue(t.Items, field, depth+1)
		}
		return items
	case schema.KindMap:
		m := make(map[string]interface{})
		if depth < maxDepth {
			m[faker.Lorem().Word()] = fakeValue(t.Values, field, depth+1)
		}
		return m
	case schema.KindUnion:
		for _, b := range t.Branches {
			if b.Kind == schema.KindNull {
				if depth >= maxDepth {
					return nil
				}
				continue
			}
			return fakeValue(b, field, depth+1)
		}
		return nil
	case schema.KindRecord:
		rec := make(map[string]interface{}, len(t.Fields))
		for _, f := range t.Fields {
			if depth >= maxDepth && f.HasDefault {
				rec[f.Name] = f.Default
				continue
			}
			rec[f.Name] = fakeValue(f.Type, f.Name, depth+1)
		}
		return rec
	}
	return nil
}

func fakeNumber(field string) int {
	switch strings.ToLower(field) {
	case "age":
		return faker.RandomInt(18, 90)
	case "year":
		return faker.RandomInt(1950, 2024)
	}
	return faker.RandomInt(0, 1000)
}

func fakeString(field string) string {
	switch name := strings.ToLower(field); {
	case name == "name" || name == "full_name":
		return faker.Name().Name()
	case name == "first_name":
		return faker.Name().FirstName()
	case name == "last_name":
		return faker.Name().LastName()
	case strings.Contains(name, "email"):
		return faker.Internet().Email()
	case strings.Contains(name, "phone"):
		return faker.PhoneNumber().CellPhone()
	case name == "country":
		return faker.Address().Country()
	case name == "city":
		return faker.Address().City()
	case strings.Contains(name, "street") || name == "address":
		return faker.Address().StreetAddress()
	case name == "company":
		return faker.Company().Name()
	}
	return faker.Lorem().Word()
}
