package catalog

import "time"

// DefaultEntries reproduces the demo's three reader views.
const DefaultEntries = "person-v1.0=person-v1-value:1,person-v1.1=person-v1-value:2,person-v2.0=person-v2-value:latest"

// DefaultResolveTimeout bounds startup resolution when Config.ResolveTimeout is zero.
const DefaultResolveTimeout = 30 * time.Second

// Config lists the catalog labels to resolve at startup.
type Config struct {
	Entries        string        `envconfig:"CATALOG_ENTRIES" default:"person-v1.0=person-v1-value:1,person-v1.1=person-v1-value:2,person-v2.0=person-v2-value:latest"`
	ResolveTimeout time.Duration `envconfig:"CATALOG_RESOLVE_TIMEOUT" default:"30s"`
}
