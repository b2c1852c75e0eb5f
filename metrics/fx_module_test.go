package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/aalemi-dev/schema-evolution-lab/logger"
	"github.com/aalemi-dev/schema-evolution-lab/metrics"
	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

func testLogger() *logger.LoggerClient {
	return logger.NewLoggerClient(logger.Config{Level: logger.Error})
}

// Registry and broker clients report through the injected observer; the
// application endpoint serves the result.
func TestFXModule_ObserverFeedsApplicationEndpoint(t *testing.T) {
	var (
		m         *metrics.Metrics
		collector metrics.MetricsCollector
		observer  observability.Observer
	)

	app := fxtest.New(t,
		metrics.FXModule,
		fx.Supply(metrics.Config{
			ServiceName:               "schema-evolution-lab",
			SystemMetricsAddress:      metrics.Ptr(""),
			ApplicationMetricsAddress: metrics.Ptr("127.0.0.1:0"),
		}),
		fx.Provide(testLogger),
		fx.Populate(&m, &collector, &observer),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, m.ApplicationServer)
	assert.Nil(t, m.SystemServer)
	assert.Same(t, m, collector)

	observer.ObserveOperation(observability.OperationContext{
		Component: observability.ComponentSchemaRegistry,
		Operation: "lookup_schema",
		Resource:  "person-v1-value",
		Duration:  3 * time.Millisecond,
		Error:     errors.New("not found"),
	})
	observer.ObserveOperation(observability.OperationContext{
		Component: observability.ComponentKafka,
		Operation: "consume",
		Resource:  "person-v1",
		Duration:  time.Millisecond,
		Size:      42,
	})

	rec := httptest.NewRecorder()
	m.ApplicationServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `infrastructure_operation_total{component="schema_registry",operation="lookup_schema",service="schema-evolution-lab",status="error"} 1`)
	assert.Contains(t, text, `infrastructure_operation_bytes_total{component="kafka",operation="consume",service="schema-evolution-lab"} 42`)
}

func TestRegisterMetricsLifecycle(t *testing.T) {
	tests := []struct {
		name        string
		system, app string
	}{
		{"both endpoints", "127.0.0.1:0", "127.0.0.1:0"},
		{"system only", "127.0.0.1:0", ""},
		{"no endpoints", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewMetrics(metrics.Config{
				ServiceName:               "schema-evolution-lab",
				SystemMetricsAddress:      metrics.Ptr(tt.system),
				ApplicationMetricsAddress: metrics.Ptr(tt.app),
			})
			assert.Equal(t, tt.system != "", m.SystemServer != nil)
			assert.Equal(t, tt.app != "", m.ApplicationServer != nil)
			assert.NotNil(t, m.ApplicationRegistry)

			app := fxtest.New(t,
				fx.Supply(m),
				fx.Provide(testLogger),
				fx.Invoke(metrics.RegisterMetricsLifecycle),
			)
			app.RequireStart()
			app.RequireStop()
		})
	}
}
