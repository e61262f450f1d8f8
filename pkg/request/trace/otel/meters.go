package otel

import otelMetric "go.opentelemetry.io/otel/metric"

type allMeters struct {
	execute executeMeters
	http    httpMeters
	body    bodyMeters
}

type executeMeters struct {
	inFlight otelMetric.Int64UpDownCounter
	duration otelMetric.Float64Histogram
}

type httpMeters struct {
	inFlight otelMetric.Int64UpDownCounter
	duration otelMetric.Float64Histogram
}

type bodyMeters struct {
	inFlight  otelMetric.Int64UpDownCounter
	duration  otelMetric.Float64Histogram
	wireBytes otelMetric.Int64Counter
}

func newMeters(meter otelMetric.Meter) *allMeters {
	return &allMeters{
		execute: executeMeters{
			inFlight: upDownCounter(meter, executeMeterPrefix+"in_flight", "Request builder: in flight executions."),
			duration: histogram(meter, executeMeterPrefix+"duration", "Request builder: execution duration, including body read.", "ms"),
		},
		http: httpMeters{
			inFlight: upDownCounter(meter, httpMeterPrefix+"in_flight", "HTTP request: in flight requests."),
			duration: histogram(meter, httpMeterPrefix+"duration", "HTTP request: response received duration (without body).", "ms"),
		},
		body: bodyMeters{
			inFlight:  upDownCounter(meter, executeMeterPrefix+"body.in_flight", "Request builder: in flight body reads."),
			duration:  histogram(meter, executeMeterPrefix+"body.duration", "Request builder: body read duration.", "ms"),
			wireBytes: counter(meter, executeMeterPrefix+"body.wire_bytes", "Request builder: received body bytes, before decoding.", "By"),
		},
	}
}

func upDownCounter(meter otelMetric.Meter, name, desc string) otelMetric.Int64UpDownCounter {
	return mustInstrument(meter.Int64UpDownCounter(name, otelMetric.WithDescription(desc)))
}

func counter(meter otelMetric.Meter, name, desc string, unit string) otelMetric.Int64Counter {
	return mustInstrument(meter.Int64Counter(name, otelMetric.WithDescription(desc), otelMetric.WithUnit(unit)))
}

func histogram(meter otelMetric.Meter, name, desc string, unit string) otelMetric.Float64Histogram {
	return mustInstrument(meter.Float64Histogram(name, otelMetric.WithDescription(desc), otelMetric.WithUnit(unit)))
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
