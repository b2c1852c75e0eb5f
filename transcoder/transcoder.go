// Package transcoder re-renders decoded records under other reader schemas and
// classifies the outcome.
//
// Compatibility is decided by walking the writer and reader schemas together,
// not by whatever the Avro library happens to accept: every reader field must
// be supplied by the record or by a default, and values may change type only
// along the Avro promotions (int to long, float or double; long to float or
// double; float to double; string and bytes both ways). The resolved record is
// then encoded with the reader schema and decoded again to check the round
// trip is stable.
package transcoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aalemi-dev/schema-evolution-lab/schema"
)

// Outcome classifies one transcode attempt.
type Outcome string

const (
	Compatible     Outcome = "compatible"
	PartialWarning Outcome = "partial_warning"
	Incompatible   Outcome = "incompatible"
)

// Result is the outcome of reading one record with one target schema.
type Result struct {
	Outcome Outcome

	// Record is the record as the target schema sees it. Nil when Incompatible.
	Record schema.Record

	// Err is set when Incompatible; usually an *IncompatibleSchemaError.
	Err error

	// Note explains a PartialWarning.
	Note string

	// Dropped lists writer fields the target has no slot for.
	Dropped []string

	// OriginVersion and TargetVersion are the registry versions of the writer
	// and target schemas.
	OriginVersion int
	TargetVersion int
}

// Reason is the human-readable failure, empty unless Incompatible.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	var ise *IncompatibleSchemaError
	if errors.As(r.Err, &ise) {
		if ise.Field == "" {
			return ise.Reason
		}
		return fmt.Sprintf("field %q: %s", ise.Field, ise.Reason)
	}
	return r.Err.Error()
}

// Attempt reads rec, decoded with writer, as target.
//
// The result is Compatible when every target field is supplied. It is
// PartialWarning when, in addition, writer fields had to be dropped and the
// writer is a newer version of the same subject as target: the record came
// from a newer producer than the view expects. Dropping fields across
// unrelated subjects stays Compatible.
//
// Attempt never panics on data; every failure is an Incompatible result.
func Attempt(rec schema.Record, writer, target *schema.Definition) (result Result) {
	fail := func(err error) Result {
		result.Outcome = Incompatible
		result.Record = nil
		result.Err = err
		return result
	}

	defer func() {
		if p := recover(); p != nil {
			result = fail(incompatible("", "transcode panicked: %v", p))
		}
	}()

	if writer == nil || target == nil {
		return fail(incompatible("", "missing schema definition"))
	}
	result.OriginVersion = writer.Version
	result.TargetVersion = target.Version

	var r resolver
	resolved, err := r.resolve(writer.Root, target.Root, rec, "")
	if err != nil {
		return fail(err)
	}
	result.Dropped = r.dropped

	narrowed := resolved.(map[string]interface{})
	payload, err := target.Encode(narrowed)
	if err != nil {
		return fail(incompatible("", "encode with %s: %v", target.Name(), err))
	}
	back, err := target.Decode(payload)
	if err != nil {
		return fail(incompatible("", "decode with %s: %v", target.Name(), err))
	}
	if !schema.Equal(narrowed, back) {
		return fail(incompatible("", "round trip through %s is not stable: %s", target.Name(), schema.Diff(narrowed, back)))
	}

	result.Record = back
	if len(r.dropped) > 0 && writer.Subject != "" && writer.Subject == target.Subject && writer.Version > target.Version {
		result.Outcome = PartialWarning
		result.Note = fmt.Sprintf("record written with %s version %d read as version %d; dropped %s",
			writer.Subject, writer.Version, target.Version, strings.Join(r.dropped, ", "))
		return result
	}

	result.Outcome = Compatible
	return result
}
