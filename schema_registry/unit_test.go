package schema_registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

type captureLogger struct {
	warns  []string
	errors []string
}

func (c *captureLogger) InfoWithContext(context.Context, string, error, ...map[string]interface{}) {}

func (c *captureLogger) WarnWithContext(_ context.Context, msg string, _ error, _ ...map[string]interface{}) {
	c.warns = append(c.warns, msg)
}

func (c *captureLogger) ErrorWithContext(_ context.Context, msg string, _ error, _ ...map[string]interface{}) {
	c.errors = append(c.errors, msg)
}

// A registry outage surfaces as a StatusError from every call the catalog,
// codec and local producer make, and is reported to the observer.
func TestClient_RegistryOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":50001,"message":"store unavailable"}`))
	}))
	defer srv.Close()

	logger := &captureLogger{}
	obs := &TestObserver{}
	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	client.WithLogger(logger).WithObserver(obs)
	ctx := context.Background()

	_, err = client.GetSchemaByID(ctx, 3)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, 50001, statusErr.ErrorCode)
	assert.Equal(t, "store unavailable", statusErr.Message)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = client.GetLatestSchema(ctx, "person-v2-value")
	require.Error(t, err)
	_, err = client.LookupSchema(ctx, "person-v1-value", `"string"`)
	require.Error(t, err)
	_, err = client.RegisterSchema(ctx, "person-v1-value", `"string"`, "")
	require.Error(t, err)

	assert.NotEmpty(t, logger.warns)
	assert.NotEmpty(t, logger.errors)

	ops := obs.GetOperations()
	require.Len(t, ops, 4)
	for _, op := range ops {
		assert.Equal(t, "error", op.Status())
		assert.Equal(t, observability.ComponentSchemaRegistry, op.Component)
	}
}

func TestClient_Unreachable(t *testing.T) {
	client, err := NewClient(Config{URL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.GetSchemaByID(ctx, 1)
	assert.Error(t, err)
	_, err = client.GetSchemaBySubjectVersion(ctx, "person-v1-value", "1")
	assert.Error(t, err)
	_, err = client.LookupSchema(ctx, "person-v1-value", `"string"`)
	assert.Error(t, err)
	_, err = client.RegisterSchema(ctx, "person-v1-value", `"string"`, "AVRO")
	assert.Error(t, err)
}

func TestClient_NilLoggerIsSilent(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		client.logInfo(ctx, "info", nil)
		client.logWarn(ctx, "warn", nil)
		client.logError(ctx, "error", errors.New("x"), nil)
	})

	logger := &captureLogger{}
	assert.Same(t, client, client.WithLogger(logger))
}

func TestFXModule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subjects/person-v1-value/versions", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	obs := &TestObserver{}
	var registry Registry
	app := fxtest.New(t,
		fx.Supply(Config{URL: srv.URL}),
		fx.Provide(
			func() Logger { return &captureLogger{} },
			func() observability.Observer { return obs },
		),
		FXModule,
		fx.Populate(&registry),
	)
	app.RequireStart()
	defer app.RequireStop()

	id, err := registry.RegisterSchema(context.Background(), "person-v1-value", `"string"`, "AVRO")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.Len(t, obs.GetOperations(), 1)
	assert.Equal(t, "register_schema", obs.GetOperations()[0].Operation)
}
