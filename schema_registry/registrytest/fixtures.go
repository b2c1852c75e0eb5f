package registrytest

// Person schemas used across the demo topics.
const (
	// PersonV1 is person-v1-value version 1.
	PersonV1 = `{"type":"record","name":"Person","namespace":"lab.people","fields":[` +
		`{"name":"name","type":"string"},` +
		`{"name":"age","type":"int"}]}`

	// PersonV1Email is person-v1-value version 2: adds a required email.
	PersonV1Email = `{"type":"record","name":"Person","namespace":"lab.people","fields":[` +
		`{"name":"name","type":"string"},` +
		`{"name":"age","type":"int"},` +
		`{"name":"email","type":"string"}]}`

	// PersonV2 is person-v2-value version 1: wider types and optional fields.
	PersonV2 = `{"type":"record","name":"Person","namespace":"lab.people","fields":[` +
		`{"name":"name","type":"string"},` +
		`{"name":"age","type":"long"},` +
		`{"name":"email","type":["null","string"],"default":null},` +
		`{"name":"country","type":"string","default":"unknown"}]}`
)

// Seeded returns a registry holding the demo subjects:
// person-v1-value versions 1 and 2 and person-v2-value version 1.
func Seeded() *Registry {
	r := New()
	r.Add("person-v1-value", PersonV1)
	r.Add("person-v1-value", PersonV1Email)
	r.Add("person-v2-value", PersonV2)
	return r
}
