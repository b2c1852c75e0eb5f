package envelope

import (
	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
)

// FXModule provides a *Codec built on the injected Registry.
var FXModule = fx.Module("envelope",
	fx.Provide(func(registry schema_registry.Registry) *Codec {
		return NewCodec(registry)
	}),
)
