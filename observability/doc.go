// Package observability provides OpenTelemetry tracing and metrics for the
// traversal engine.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("traverse"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanFinalize)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("traverse"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("traverse"))
//	metrics.RecordFinalize(ctx, 4, "ok", elapsed)
//
// A nil *Metrics is valid and records nothing.
package observability
