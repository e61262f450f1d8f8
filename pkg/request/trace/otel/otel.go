// Package otel provides OpenTelemetry tracing and metrics for request.Builder executions.
//
// The package provides 2 levels of telemetry:
//
// 1. Low-level telemetry
//   - It provides span and metrics for every sent HTTP request, including redirects.
//   - Span name is "http.request", child spans "http.dns", "http.getconn", "http.connect", "http.tls"
//     are created from the httptrace hooks.
//   - Metrics names start with "keboola.go.http.request." (httpMeterPrefix const).
//
// 2. High-level telemetry
//   - It provides span and metrics for each Builder execution.
//   - Main span "keboola.go.request.execute" wraps all redirects together.
//   - Span "keboola.go.request.body.read" tracks response body receiving and decoding.
//   - Metrics names start with "keboola.go.request.execute." (executeMeterPrefix const).
package otel

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keboola/go-request/pkg/request/trace"
)

const (
	traceAppName       = "github.com/keboola/go-request"
	attrResourceName   = attribute.Key("resource.name")
	executeMeterPrefix = "keboola.go.request.execute."
	httpMeterPrefix    = "keboola.go.http.request."
	// Low-level tracing, for each redirect.
	httpSpanPrefix             = "http."
	httpRequestSpanName        = httpSpanPrefix + "request"
	httpDNSSpanName            = httpSpanPrefix + "dns"
	httpGetConnSpanName        = httpSpanPrefix + "getconn"
	httpConnectSpanName        = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName   = httpSpanPrefix + "tls"
	attrDNSAddresses           = attribute.Key("http.dns.addrs")
	attrRemoteAddr             = attribute.Key("http.remote")
	attrLocalAddr              = attribute.Key("http.local")
	attrConnectionReused       = attribute.Key("http.conn.reused")
	attrConnectionWasIdle      = attribute.Key("http.conn.wasidle")
	attrConnectionIdleTime     = attribute.Key("http.conn.idletime")
	attrConnectionStartNetwork = attribute.Key("http.conn.start.network")
	attrConnectionDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnectionDoneAddr     = attribute.Key("http.conn.done.addr")
	attrWireBytes              = attribute.Key("http.wire_bytes")
	attrBodyBytes              = attribute.Key("http.body_bytes")
	attrBodyPresent            = attribute.Key("http.body_present")
	// High-level tracing.
	executeSpanPrefix = "keboola.go.request."
	executeSpanName   = executeSpanPrefix + "execute"
	bodyReadSpanName  = executeSpanPrefix + "body.read"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

// NewTrace creates a trace.Factory, which reports spans and metrics to the providers.
// Nil providers are replaced by no-op implementations.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(rootCtx context.Context, req *http.Request) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, req)

		// Create root span and metrics, it may contain multiple HTTP requests (redirects).
		{
			var rootSpan otelTrace.Span

			// Metrics
			startTime := time.Now()
			meters.execute.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...))

			// Tracing
			rootCtx, rootSpan = tracer.Start(
				rootCtx,
				executeSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrResourceName.String(attrs.definitionURL.Path),
					attrSpanKind.String(attrSpanKindValueClient),
					attrSpanType.String(attrSpanTypeValueHTTP),
				),
				otelTrace.WithAttributes(attrs.definition...),
				otelTrace.WithAttributes(attrs.definitionExtra...),
			)
			tc.RequestProcessed = func(_ *http.Response, body []byte, err error) {
				elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)

				// Metrics
				meterAttrs := append(attrs.definition, attrs.httpResponse...)
				meters.execute.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.definition...)) // same attributes/dimensions as above (+1)!
				meters.execute.duration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(meterAttrs...))

				// Tracing, attributes from the last response
				rootSpan.SetAttributes(attrs.httpResponse...)
				rootSpan.SetAttributes(attrs.httpResponseExtra...)
				rootSpan.SetAttributes(attrBodyPresent.Bool(body != nil), attrBodyBytes.Int(len(body)))
				if err == nil {
					rootSpan.End()
				} else {
					rootSpan.RecordError(err)
					rootSpan.SetStatus(codes.Error, err.Error())
					rootSpan.End(otelTrace.WithStackTrace(true))
				}
			}
		}

		// Handle HTTP requests
		var httpCtx context.Context
		{
			var httpRequestSpan otelTrace.Span
			var httpRequestStart time.Time
			tc.HTTPRequestStart = func(req *http.Request) {
				// Create HTTP request span
				httpCtx, httpRequestSpan = tracer.Start(
					rootCtx,
					httpRequestSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(
						attrSpanKind.String(attrSpanKindValueClient),
						attrSpanType.String(attrSpanTypeValueHTTP),
					),
				)

				// Inject trace headers
				if cfg.propagators != nil {
					cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
				}

				// Attrs
				httpRequestStart = time.Now()
				attrs.SetFromRequest(req)
				httpRequestSpan.SetAttributes(attrResourceName.String(attrs.definitionURL.Path))

				// Metrics
				meters.http.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.httpRequest...))

				// Tracing
				httpRequestSpan.SetAttributes(attrs.httpRequest...)
				httpRequestSpan.SetAttributes(attrs.httpRequestExtra...)
			}
			tc.HTTPRequestDone = func(res *http.Response, err error) {
				elapsedTime := float64(time.Since(httpRequestStart)) / float64(time.Millisecond)
				attrs.SetFromResponse(res, err)

				// Metrics
				meters.http.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.httpRequest...)) // same attributes/dimensions as in HTTPRequestStart!
				meters.http.duration.Record(
					rootCtx,
					elapsedTime,
					otelMetric.WithAttributes(attrs.httpRequest...),
					otelMetric.WithAttributes(attrs.httpResponse...),
				)

				// Tracing
				if httpRequestSpan != nil {
					httpRequestSpan.SetAttributes(attrs.httpResponse...)
					httpRequestSpan.SetAttributes(attrs.httpResponseExtra...)
					httpRequestSpan.SetAttributes(attrs.httpResponseError...)
					switch {
					case err != nil:
						httpRequestSpan.RecordError(err)
						httpRequestSpan.SetStatus(codes.Error, err.Error())
					case res != nil && !isSuccess(res, nil):
						httpRequestSpan.SetStatus(codes.Error, res.Status)
					}
					httpRequestSpan.End()
					httpRequestSpan = nil
				}
			}
		}

		// Handle body read
		{
			var bodyReadStart time.Time
			var bodyReadSpan otelTrace.Span
			var bodyMeterAttrs []attribute.KeyValue
			tc.BodyReadStart = func(_ *http.Response) {
				bodyReadStart = time.Now()
				bodyMeterAttrs = nil
				bodyMeterAttrs = append(bodyMeterAttrs, attrs.definition...)
				bodyMeterAttrs = append(bodyMeterAttrs, attrs.httpResponse...)

				// Metrics
				meters.body.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(bodyMeterAttrs...))

				// Tracing
				_, bodyReadSpan = tracer.Start(
					rootCtx,
					bodyReadSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(attrs.httpRequest...),
					otelTrace.WithAttributes(attrs.httpResponse...),
				)
			}
			tc.BodyReadDone = func(_ *http.Response, body []byte, wireBytes int64, err error) {
				elapsedTime := float64(time.Since(bodyReadStart)) / float64(time.Millisecond)

				// Metrics
				meters.body.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(bodyMeterAttrs...))
				meters.body.duration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(bodyMeterAttrs...))
				meters.body.wireBytes.Add(rootCtx, wireBytes, otelMetric.WithAttributes(bodyMeterAttrs...))

				// Tracing
				if bodyReadSpan != nil {
					bodyReadSpan.SetAttributes(attrWireBytes.Int64(wireBytes), attrBodyBytes.Int(len(body)))
					if err != nil {
						bodyReadSpan.RecordError(err)
						bodyReadSpan.SetStatus(codes.Error, err.Error())
					}
					bodyReadSpan.End()
					bodyReadSpan = nil
				}
			}
		}

		// Register low-level tracing.
		// "otelhttptrace" pkg from the opentelemetry-contrib module is buggy, does not end spans:
		// https://github.com/open-telemetry/opentelemetry-go-contrib/issues/399
		// httptrace: DNS
		{
			var dnsSpan otelTrace.Span
			tc.DNSStart = func(info httptrace.DNSStartInfo) {
				_, dnsSpan = tracer.Start(
					httpCtx,
					httpDNSSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(semconv.NetHostName(info.Host)),
				)
			}
			tc.DNSDone = func(info httptrace.DNSDoneInfo) {
				if dnsSpan != nil {
					var addrs []string
					for _, netAddr := range info.Addrs {
						addrs = append(addrs, netAddr.String())
					}
					dnsSpan.SetAttributes(attrDNSAddresses.String(strings.Join(addrs, ";")))
					if info.Err != nil {
						dnsSpan.RecordError(info.Err)
						dnsSpan.SetStatus(codes.Error, info.Err.Error())
					}
					dnsSpan.End()
					dnsSpan = nil
				}
			}
		}
		// httptrace: Get connection
		{
			var getConnSpan otelTrace.Span
			tc.GetConn = func(host string) {
				_, getConnSpan = tracer.Start(
					httpCtx,
					httpGetConnSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(semconv.NetHostName(host)),
				)
			}
			tc.GotConn = func(info httptrace.GotConnInfo) {
				if getConnSpan != nil {
					getConnSpan.SetAttributes(
						attrRemoteAddr.String(info.Conn.RemoteAddr().String()),
						attrLocalAddr.String(info.Conn.LocalAddr().String()),
						attrConnectionReused.Bool(info.Reused),
						attrConnectionWasIdle.Bool(info.WasIdle),
					)
					if info.WasIdle {
						getConnSpan.SetAttributes(attrConnectionIdleTime.String(info.IdleTime.String()))
					}
					getConnSpan.End()
					getConnSpan = nil
				}
			}
		}
		// httptrace: Connect
		{
			var connectSpan otelTrace.Span
			tc.ConnectStart = func(network, addr string) {
				_, connectSpan = tracer.Start(
					httpCtx,
					httpConnectSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(
						attrRemoteAddr.String(addr),
						attrConnectionStartNetwork.String(network),
					),
				)
			}
			tc.ConnectDone = func(network, addr string, err error) {
				if connectSpan != nil {
					connectSpan.SetAttributes(
						attrConnectionDoneAddr.String(addr),
						attrConnectionDoneNetwork.String(network),
					)
					if err != nil {
						connectSpan.RecordError(err)
						connectSpan.SetStatus(codes.Error, err.Error())
					}
					connectSpan.End()
					connectSpan = nil
				}
			}
		}
		// httptrace: TLS handshake
		// Note: It is not reported if the http2.Transport is used directly, without upgrade from http.Transport.
		{
			var tlsSpan otelTrace.Span
			tc.TLSHandshakeStart = func() {
				_, tlsSpan = tracer.Start(
					httpCtx,
					httpTLSHandshakeSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				)
			}
			tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
				if tlsSpan != nil {
					if err != nil {
						tlsSpan.RecordError(err)
						tlsSpan.SetStatus(codes.Error, err.Error())
					}
					tlsSpan.End()
					tlsSpan = nil
				}
			}
		}

		return rootCtx, tc
	}
}
