// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      false,
		ServiceName:  "tetherd",
		ExporterType: "grpc",
	})
	require.NoError(t, err)
	assert.False(t, provider.Enabled())

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "tetherd",
		ExporterType: "invalid",
	})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: invalid (supported: grpc, http)", err.Error())
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1.0).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "root:AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.5).Description(), "root:TraceIDRatioBased")
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, (&Provider{}).Shutdown(ctx))
	var nilProvider *Provider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}

func TestNewProviderWithExporter(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	provider, err := NewProviderWithExporter(context.Background(), Config{
		ServiceName:    "tetherd",
		ServiceVersion: "v0.0.1",
		SamplingRate:   1,
	}, exp)
	require.NoError(t, err)
	require.True(t, provider.Enabled())
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := Tracer(TracerName).Start(context.Background(), "tether.attempt")
	span.SetAttributes(AttemptAttributes("a-1", "enabled")...)
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "tether.attempt", spans[0].Name)
	svc, ok := spans[0].Resource.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "tetherd", svc.AsString())
}
