package transcoder

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/schema-evolution-lab/schema"
	"github.com/aalemi-dev/schema-evolution-lab/schema_registry/registrytest"
)

func definition(t *testing.T, raw, subject string, version int) *schema.Definition {
	t.Helper()
	def, err := schema.NewDefinition(raw)
	require.NoError(t, err)
	return def.WithVersion(subject, version, version)
}

func TestAttempt_SameSchemaIsCompatible(t *testing.T) {
	v1 := definition(t, registrytest.PersonV1, "person-v1-value", 1)
	rec := schema.Record{"name": "Ada", "age": int32(30)}

	res := Attempt(rec, v1, v1)
	assert.Equal(t, Compatible, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Dropped)
	assert.True(t, schema.Equal(rec, res.Record), schema.Diff(rec, res.Record))
}

func TestAttempt_WideningIsCompatible(t *testing.T) {
	v1 := definition(t, registrytest.PersonV1, "person-v1-value", 1)
	v2 := definition(t, registrytest.PersonV2, "person-v2-value", 1)

	res := Attempt(schema.Record{"name": "Ada", "age": int32(30)}, v1, v2)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	assert.Equal(t, schema.Record{
		"name":    "Ada",
		"age":     int64(30),
		"email":   nil,
		"country": "unknown",
	}, res.Record)
}

func TestAttempt_MissingRequiredFieldIsIncompatible(t *testing.T) {
	v1 := definition(t, registrytest.PersonV1, "person-v1-value", 1)
	v11 := definition(t, registrytest.PersonV1Email, "person-v1-value", 2)

	res := Attempt(schema.Record{"name": "Ada", "age": int32(30)}, v1, v11)
	assert.Equal(t, Incompatible, res.Outcome)
	assert.Nil(t, res.Record)
	assert.ErrorIs(t, res.Err, ErrIncompatibleSchema)

	var ise *IncompatibleSchemaError
	require.True(t, errors.As(res.Err, &ise))
	assert.Equal(t, "email", ise.Field)
	assert.Contains(t, res.Reason(), "email")
}

func TestAttempt_NarrowingNewerWriterIsPartialWarning(t *testing.T) {
	v1 := definition(t, registrytest.PersonV1, "person-v1-value", 1)
	v11 := definition(t, registrytest.PersonV1Email, "person-v1-value", 2)

	res := Attempt(schema.Record{"name": "Ada", "age": int32(30), "email": "ada@example.com"}, v11, v1)
	require.Equal(t, PartialWarning, res.Outcome, res.Reason())
	assert.Equal(t, schema.Record{"name": "Ada", "age": int32(30)}, res.Record)
	assert.Equal(t, []string{"email"}, res.Dropped)
	assert.Equal(t, 2, res.OriginVersion)
	assert.Equal(t, 1, res.TargetVersion)
	assert.Contains(t, res.Note, "email")
}

func TestAttempt_NarrowingAcrossSubjectsIsCompatible(t *testing.T) {
	v2 := definition(t, registrytest.PersonV2, "person-v2-value", 1)
	v1 := definition(t, registrytest.PersonV1, "person-v1-value", 1)

	// long age cannot be narrowed back to int
	res := Attempt(schema.Record{"name": "Ada", "age": int64(30), "email": nil, "country": "UK"}, v2, v1)
	assert.Equal(t, Incompatible, res.Outcome)
	assert.Contains(t, res.Reason(), "age")

	intAge := definition(t, `{"type":"record","name":"Person","namespace":"lab.people","fields":[
		{"name":"name","type":"string"}]}`, "other-value", 1)
	res = Attempt(schema.Record{"name": "Ada", "age": int64(30), "email": nil, "country": "UK"}, v2, intAge)
	assert.Equal(t, Compatible, res.Outcome)
	assert.ElementsMatch(t, []string{"age", "email", "country"}, res.Dropped)
}

func TestAttempt_Promotions(t *testing.T) {
	writer := definition(t, `{"type":"record","name":"R","fields":[
		{"name":"i","type":"int"},
		{"name":"l","type":"long"},
		{"name":"f","type":"float"},
		{"name":"s","type":"string"},
		{"name":"b","type":"bytes"}
	]}`, "r-value", 1)
	reader := definition(t, `{"type":"record","name":"R","fields":[
		{"name":"i","type":"double"},
		{"name":"l","type":"float"},
		{"name":"f","type":"double"},
		{"name":"s","type":"bytes"},
		{"name":"b","type":"string"}
	]}`, "r-value", 2)

	res := Attempt(schema.Record{
		"i": int32(7), "l": int64(8), "f": float32(1.5), "s": "hi", "b": []byte("yo"),
	}, writer, reader)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	assert.Equal(t, float64(7), res.Record["i"])
	assert.Equal(t, float32(8), res.Record["l"])
	assert.Equal(t, float64(1.5), res.Record["f"])
	assert.Equal(t, []byte("hi"), res.Record["s"])
	assert.Equal(t, "yo", res.Record["b"])
}

func TestAttempt_FieldAliases(t *testing.T) {
	writer := definition(t, `{"type":"record","name":"P","fields":[{"name":"full_name","type":"string"}]}`, "p-value", 1)
	reader := definition(t, `{"type":"record","name":"P","fields":[{"name":"name","type":"string","aliases":["full_name"]}]}`, "p-value", 2)

	res := Attempt(schema.Record{"full_name": "Ada"}, writer, reader)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	assert.Equal(t, schema.Record{"name": "Ada"}, res.Record)
	assert.Empty(t, res.Dropped)
}

func TestAttempt_Enums(t *testing.T) {
	writer := definition(t, `{"type":"record","name":"P","fields":[
		{"name":"status","type":{"type":"enum","name":"Status","symbols":["ACTIVE","RETIRED","BANNED"]}}]}`, "p-value", 1)
	strict := definition(t, `{"type":"record","name":"P","fields":[
		{"name":"status","type":{"type":"enum","name":"Status","symbols":["ACTIVE","RETIRED"]}}]}`, "p-value", 2)
	lenient := definition(t, `{"type":"record","name":"P","fields":[
		{"name":"status","type":{"type":"enum","name":"Status","symbols":["ACTIVE","UNKNOWN"],"default":"UNKNOWN"}}]}`, "p-value", 3)

	res := Attempt(schema.Record{"status": "RETIRED"}, writer, strict)
	assert.Equal(t, Compatible, res.Outcome, res.Reason())

	res = Attempt(schema.Record{"status": "BANNED"}, writer, strict)
	assert.Equal(t, Incompatible, res.Outcome)
	assert.Contains(t, res.Reason(), "BANNED")

	res = Attempt(schema.Record{"status": "BANNED"}, writer, lenient)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	assert.Equal(t, "UNKNOWN", res.Record["status"])
}

func TestAttempt_UnionsAndNested(t *testing.T) {
	writer := definition(t, `{"type":"record","name":"P","fields":[
		{"name":"nick","type":["null","string"],"default":null},
		{"name":"tags","type":{"type":"array","items":"int"}},
		{"name":"home","type":{"type":"record","name":"Addr","fields":[
			{"name":"city","type":"string"},
			{"name":"zip","type":"string"}]}}
	]}`, "p-value", 2)
	reader := definition(t, `{"type":"record","name":"P","fields":[
		{"name":"nick","type":["null","string"],"default":null},
		{"name":"tags","type":{"type":"array","items":"long"}},
		{"name":"home","type":{"type":"record","name":"Addr","fields":[
			{"name":"city","type":"string"}]}}
	]}`, "p-value", 1)

	rec := schema.Record{
		"nick": "countess",
		"tags": []interface{}{int32(1), int32(2)},
		"home": map[string]interface{}{"city": "London", "zip": "W1"},
	}
	res := Attempt(rec, writer, reader)
	require.Equal(t, PartialWarning, res.Outcome, res.Reason())
	assert.Equal(t, []string{"home.zip"}, res.Dropped)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, res.Record["tags"])
	assert.Equal(t, "countess", res.Record["nick"])

	nullable := definition(t, `{"type":"record","name":"P","fields":[{"name":"nick","type":["null","string"]}]}`, "n-value", 1)
	required := definition(t, `{"type":"record","name":"P","fields":[{"name":"nick","type":"string"}]}`, "n-value", 2)
	res = Attempt(schema.Record{"nick": nil}, nullable, required)
	assert.Equal(t, Incompatible, res.Outcome)
	assert.Contains(t, res.Reason(), "nick")

	res = Attempt(schema.Record{"nick": "x"}, required, nullable)
	assert.Equal(t, Compatible, res.Outcome, res.Reason())
}

func TestAttempt_RecordNameMismatch(t *testing.T) {
	a := definition(t, `{"type":"record","name":"A","fields":[{"name":"x","type":"int"}]}`, "s", 1)
	b := definition(t, `{"type":"record","name":"B","fields":[{"name":"x","type":"int"}]}`, "s", 2)

	res := Attempt(schema.Record{"x": int32(1)}, a, b)
	assert.Equal(t, Incompatible, res.Outcome)
}

func TestAttempt_BadValueNeverPanics(t *testing.T) {
	v1 := definition(t, registrytest.PersonV1, "person-v1-value", 1)

	res := Attempt(schema.Record{"name": 42, "age": "old"}, v1, v1)
	assert.Equal(t, Incompatible, res.Outcome)
	assert.Error(t, res.Err)
}

const orderV1 = `{"type":"record","name":"Order","fields":[
	{"name":"amount","type":{"type":"bytes","logicalType":"decimal","precision":9,"scale":2}},
	{"name":"discount","type":["null",{"type":"bytes","logicalType":"decimal","precision":9,"scale":2}],"default":null},
	{"name":"day","type":{"type":"int","logicalType":"date"}},
	{"name":"placed","type":{"type":"long","logicalType":"timestamp-millis"}},
	{"name":"took","type":{"type":"int","logicalType":"time-millis"}}
]}`

// decoded encodes rec with def and decodes it again, so values carry the Go
// types the codec produces.
func decoded(t *testing.T, def *schema.Definition, rec schema.Record) schema.Record {
	t.Helper()
	payload, err := def.Encode(rec)
	require.NoError(t, err)
	out, err := def.Decode(payload)
	require.NoError(t, err)
	return out
}

func order(t *testing.T, def *schema.Definition) schema.Record {
	t.Helper()
	return decoded(t, def, schema.Record{
		"amount":   big.NewRat(1999, 100),
		"discount": big.NewRat(-5, 1),
		"day":      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"placed":   time.UnixMilli(1700000000123).UTC(),
		"took":     1500 * time.Millisecond,
	})
}

func TestAttempt_LogicalTypesUnderOwnSchema(t *testing.T) {
	v1 := definition(t, orderV1, "order-value", 1)
	rec := order(t, v1)

	res := Attempt(rec, v1, v1)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	assert.True(t, schema.Equal(rec, res.Record), schema.Diff(rec, res.Record))

	res = Attempt(schema.Record{
		"amount": big.NewRat(1, 4), "discount": nil, "day": rec["day"], "placed": rec["placed"], "took": rec["took"],
	}, v1, v1)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	assert.Nil(t, res.Record["discount"])
}

func TestAttempt_LogicalTypesPromote(t *testing.T) {
	v1 := definition(t, orderV1, "order-value", 1)
	plain := definition(t, `{"type":"record","name":"Order","fields":[
		{"name":"amount","type":"bytes"},
		{"name":"discount","type":["null","bytes"],"default":null},
		{"name":"day","type":"long"},
		{"name":"placed","type":"long"},
		{"name":"took","type":"double"}
	]}`, "order-value", 2)

	res := Attempt(order(t, v1), v1, plain)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	assert.Equal(t, []byte{0x07, 0xcf}, res.Record["amount"])
	assert.Equal(t, []byte{0xfe, 0x0c}, res.Record["discount"])
	assert.Equal(t, int64(19783), res.Record["day"])
	assert.Equal(t, int64(1700000000123), res.Record["placed"])
	assert.Equal(t, float64(1500), res.Record["took"])

	// and back: plain primitives take the reader's logical form
	back := Attempt(res.Record, plain, definition(t, `{"type":"record","name":"Order","fields":[
		{"name":"amount","type":{"type":"bytes","logicalType":"decimal","precision":9,"scale":2}},
		{"name":"placed","type":{"type":"long","logicalType":"timestamp-millis"}}
	]}`, "other-value", 1))
	require.Equal(t, Compatible, back.Outcome, back.Reason())
	assert.Equal(t, 0, big.NewRat(1999, 100).Cmp(back.Record["amount"].(*big.Rat)))
	assert.True(t, time.UnixMilli(1700000000123).Equal(back.Record["placed"].(time.Time)))
}

func TestAttempt_DateReadAsTimestamp(t *testing.T) {
	writer := definition(t, `{"type":"record","name":"E","fields":[
		{"name":"d","type":{"type":"int","logicalType":"date"}}]}`, "e-value", 1)
	reader := definition(t, `{"type":"record","name":"E","fields":[
		{"name":"d","type":{"type":"long","logicalType":"timestamp-micros"}}]}`, "e-value", 2)

	rec := decoded(t, writer, schema.Record{"d": time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)})
	res := Attempt(rec, writer, reader)
	require.Equal(t, Compatible, res.Outcome, res.Reason())
	// resolution runs on the underlying int: one day becomes one microsecond
	assert.True(t, time.UnixMicro(1).Equal(res.Record["d"].(time.Time)))

	res = Attempt(rec, reader, writer)
	assert.Equal(t, Incompatible, res.Outcome)
}

func TestAttempt_NilDefinitions(t *testing.T) {
	v1 := definition(t, registrytest.PersonV1, "person-v1-value", 1)
	rec := schema.Record{"name": "Ada", "age": int32(30)}

	assert.NotPanics(t, func() {
		res := Attempt(rec, nil, v1)
		assert.Equal(t, Incompatible, res.Outcome)
		assert.ErrorIs(t, res.Err, ErrIncompatibleSchema)

		res = Attempt(rec, v1, nil)
		assert.Equal(t, Incompatible, res.Outcome)
	})
}
