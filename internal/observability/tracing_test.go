package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.TODO(), TracingConfig{}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.TODO()))
}

func TestInitTracing_ExportsSpans(t *testing.T) {
	buf := &bytes.Buffer{}
	shutdown, err := InitTracing(context.TODO(), TracingConfig{Enabled: true, ServiceName: "ptfare-test", Output: buf}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.TODO(), "replay")
	span.End()
	ShutdownWithTimeout(context.TODO(), shutdown, nil)

	assert.Contains(t, buf.String(), `"Name":"replay"`)
	assert.Contains(t, buf.String(), "ptfare-test")
}
