// Package request provides a mutable, fluent builder for issuing single HTTP requests, see New function.
//
// A Builder accumulates headers, a payload, a timeout and a user agent.
// The request is sent by Builder.Execute, which returns the raw response body,
// or by the generic ExecuteAs function, which maps the JSON response body to a value of type T.
// Get, Post, Put, Patch and Delete are shortcuts for ExecuteAs.
//
// Payload is a sum type with three cases: TextPayload, BytesPayload and JSONPayload.
//
// The Builder is not safe for concurrent use. The underlying Transport is created lazily
// on the first execution and it is reused by all following executions of the same Builder.
package request
