package registrytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
)

func TestSeeded_ThroughHTTPClient(t *testing.T) {
	reg := Seeded()
	server := NewServer(reg)
	defer server.Close()

	client, err := schema_registry.NewClient(schema_registry.Config{URL: server.URL})
	require.NoError(t, err)
	ctx := context.Background()

	latest, err := client.GetLatestSchema(ctx, "person-v1-value")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, PersonV1Email, latest.Schema)

	raw, err := client.GetSchemaByID(ctx, latest.ID)
	require.NoError(t, err)
	assert.Equal(t, PersonV1Email, raw)

	meta, err := client.LookupSchema(ctx, "person-v1-value", PersonV1)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Version)

	_, err = client.GetSchemaBySubjectVersion(ctx, "person-v1-value", "3")
	assert.ErrorIs(t, err, schema_registry.ErrNotFound)

	id, err := client.RegisterSchema(ctx, "person-v3-value", PersonV1, "AVRO")
	require.NoError(t, err)
	v1, _ := reg.Add("person-v1-value", PersonV1)
	assert.Equal(t, v1, id, "same text shares an id across subjects")
}
