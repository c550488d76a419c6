package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing(context.Background(), TracingConfig{ServiceName: "test", Stdout: true, Writer: &buf}, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "ingestion.download")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ingestion.download") {
		t.Errorf("exported spans missing span name: %s", buf.String())
	}
}

func TestSetupTracingWithoutExporter(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
