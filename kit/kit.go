// Package kit holds the transport-agnostic service plumbing: the Endpoint
// abstraction, middleware chaining, context propagation, and the MCP tool
// adapter. Handlers are written once as Endpoints and exposed over HTTP
// and MCP without duplication.
package kit

import "context"

// Endpoint is one unit of service work, independent of transport.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares into one. The first middleware is outermost:
// Chain(a, b, c)(e) runs a(b(c(e))).
func Chain(mw ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}
