package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
)

var (
	// ErrStartupResolution is wrapped by StartupResolutionError.
	ErrStartupResolution = errors.New("catalog entry could not be resolved")

	// ErrUnknownLabel is returned by Resolve for a label not in the catalog.
	ErrUnknownLabel = errors.New("unknown catalog label")
)

// StartupResolutionError reports a catalog entry the registry could not serve.
type StartupResolutionError struct {
	Label   string
	Subject string
	Version string
	Err     error
}

func (e *StartupResolutionError) Error() string {
	return fmt.Sprintf("resolve %s (%s version %s): %v", e.Label, e.Subject, e.Version, e.Err)
}

func (e *StartupResolutionError) Unwrap() []error {
	return []error{ErrStartupResolution, e.Err}
}

// Spec names the registry coordinates of one catalog label.
type Spec struct {
	Label   string
	Subject string

	// Version is a positive number or schema_registry.Latest.
	Version string
}

// Entry is a resolved catalog label.
type Entry struct {
	Label      string
	Definition *schema.Definition
}

// VersionSuffix is the display version of the entry, e.g. "v1.1" for
// "person-v1.1".
func (e Entry) VersionSuffix() string {
	return LabelSuffix(e.Label)
}

// LabelSuffix returns the text after the last '-' of label.
func LabelSuffix(label string) string {
	if i := strings.LastIndex(label, "-"); i >= 0 {
		return label[i+1:]
	}
	return label
}

// Catalog maps labels to reader schemas. It is immutable after New returns and
// safe for concurrent reads.
type Catalog struct {
	entries []Entry
	byLabel map[string]*schema.Definition
}

// New resolves every spec against registry. Any failure fails the whole
// catalog; the first error is returned as a *StartupResolutionError.
func New(ctx context.Context, registry schema_registry.Registry, specs []Spec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no entries configured", ErrStartupResolution)
	}

	entries := make([]Entry, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			def, err := resolve(gctx, registry, spec)
			if err != nil {
				return &StartupResolutionError{
					Label:   spec.Label,
					Subject: spec.Subject,
					Version: spec.Version,
					Err:     err,
				}
			}
			entries[i] = Entry{Label: spec.Label, Definition: def}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byLabel := make(map[string]*schema.Definition, len(entries))
	for _, e := range entries {
		if _, dup := byLabel[e.Label]; dup {
			return nil, &StartupResolutionError{Label: e.Label, Subject: e.Definition.Subject,
				Version: fmt.Sprint(e.Definition.Version), Err: errors.New("duplicate label")}
		}
		byLabel[e.Label] = e.Definition
	}

	return &Catalog{entries: entries, byLabel: byLabel}, nil
}

func resolve(ctx context.Context, registry schema_registry.Registry, spec Spec) (*schema.Definition, error) {
	meta, err := registry.GetSchemaBySubjectVersion(ctx, spec.Subject, spec.Version)
	if err != nil {
		return nil, err
	}
	def, err := schema.NewDefinition(meta.Schema)
	if err != nil {
		return nil, err
	}
	subject := meta.Subject
	if subject == "" {
		subject = spec.Subject
	}
	return def.WithVersion(subject, meta.Version, meta.ID), nil
}

// Resolve returns the reader schema for label.
func (c *Catalog) Resolve(label string) (*schema.Definition, error) {
	def, ok := c.byLabel[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return def, nil
}

// Entries returns the entries in configured order. The slice must not be
// modified.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Labels returns the configured labels in order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Label
	}
	return out
}

// ParseSpecs parses "label=subject:version" pairs separated by commas.
// Version may be omitted, meaning latest.
func ParseSpecs(s string) ([]Spec, error) {
	var specs []Spec
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		label, target, ok := strings.Cut(item, "=")
		if !ok || label == "" || target == "" {
			return nil, fmt.Errorf("invalid catalog entry %q: want label=subject:version", item)
		}
		subject, version, _ := strings.Cut(target, ":")
		if version == "" {
			version = schema_registry.Latest
		}
		if subject == "" {
			return nil, fmt.Errorf("invalid catalog entry %q: empty subject", item)
		}
		specs = append(specs, Spec{Label: label, Subject: subject, Version: version})
	}
	return specs, nil
}
