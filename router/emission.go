package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/aalemi-dev/schema-evolution-lab/catalog"
	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/transcoder"
)

// DirectDisplayArea is the display area of the as-written emission.
const DirectDisplayArea = "producer"

// OutcomeDirect marks the as-written emission of a record.
const OutcomeDirect transcoder.Outcome = "direct"

// Emission is one result delivered to an observer.
type Emission struct {
	// DisplayArea is DirectDisplayArea or a catalog label.
	DisplayArea string
	Topic       string
	Outcome     transcoder.Outcome

	// Record is nil when Outcome is Incompatible.
	Record schema.Record

	// Error is the incompatibility reason.
	Error string

	// Version is the display version, or the warning text for a
	// PartialWarning.
	Version string

	// Timestamp is the broker time of the source record.
	Timestamp time.Time

	Partition int
	Offset    int64
}

// DirectVersion is the display version of a record written to topic under
// subject version n: the topic's last '-' segment followed by n-1, so
// ("person-v1", 2) is "v1.1".
func DirectVersion(topic string, version int) string {
	suffix := topic
	if i := strings.LastIndex(topic, "-"); i >= 0 {
		suffix = topic[i+1:]
	}
	return fmt.Sprintf("%s.%d", suffix, version-1)
}

// WarningVersion is the version text shown for a PartialWarning.
func WarningVersion(expected, received string) string {
	return fmt.Sprintf("Warning - expected %s, received %s", expected, received)
}

func catalogEmission(base Emission, entry catalog.Entry, received string, res transcoder.Result) Emission {
	e := base
	e.DisplayArea = entry.Label
	e.Outcome = res.Outcome
	e.Version = entry.VersionSuffix()

	switch res.Outcome {
	case transcoder.Incompatible:
		e.Error = res.Reason()
	case transcoder.PartialWarning:
		e.Record = res.Record
		e.Version = WarningVersion(entry.VersionSuffix(), received)
	default:
		e.Record = res.Record
	}
	return e
}
