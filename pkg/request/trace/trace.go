// Package trace extends the httptrace.ClientTrace and adds additional hooks for a Builder execution.
// A custom ClientTrace definition can be registered in the request.Builder by the WithTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"
)

// Factory creates ClientTrace hooks for an outgoing request.
// The returned context is used for the rest of the execution.
type Factory func(ctx context.Context, request *http.Request) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of a Builder execution.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the request begins. It includes redirects.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called when the response headers are received or the request failed. It includes redirects.
	HTTPRequestDone func(response *http.Response, err error)
	// BodyReadStart is called before the response body is read, it is not called if the response has no body.
	BodyReadStart func(response *http.Response)
	// BodyReadDone is called when the response body is read, wireBytes is the body size before decoding.
	BodyReadDone func(response *http.Response, body []byte, wireBytes int64, err error)
	// RequestProcessed is called when the Builder.Execute method is done.
	RequestProcessed func(response *http.Response, body []byte, err error)
}

type ctxKey struct{}

// WithClientTrace returns a new context based on the provided parent ctx.
// Hooks already present in the ctx are called after the new hooks.
func WithClientTrace(ctx context.Context, trace *ClientTrace) context.Context {
	if trace == nil {
		return ctx
	}
	trace.Compose(ContextClientTrace(ctx))
	ctx = context.WithValue(ctx, ctxKey{}, trace)
	return httptrace.WithClientTrace(ctx, &trace.ClientTrace)
}

// ContextClientTrace returns the ClientTrace associated with the provided context, or nil.
func ContextClientTrace(ctx context.Context) *ClientTrace {
	trace, _ := ctx.Value(ctxKey{}).(*ClientTrace)
	return trace
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// Copy of httptrace.compose.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())

		// We need to call both tf and of in some order.
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			tfCopy.Call(args)
			return of.Call(args)
		})
		tv.Field(i).Set(newFunc)
	}
}
