// Package httpserver exposes the auction engine over HTTP and provides
// the serving shell around it.
//
// The BaseServer implements a base HTTP server with standard health
// endpoints, graceful shutdown, metrics, and flexible routing. The
// AuctionHandler registers the auction API on top of it.
//
// # Key Components
//
//   - BaseServer: Core HTTP server with health checks, metrics, and lifecycle management
//   - RouteRegistrar: Interface for components to register their routes with the server
//   - AuctionHandler: The /api/v1 auction lifecycle and bidding endpoints
//
// # Health and Diagnostics
//
// All servers built with BaseServer automatically include:
//
//   - Liveness Check: Simple endpoint to verify server is running (/livez)
//   - Readiness Check: Endpoint indicating if server is ready to accept requests (/readyz)
//   - Drain Control: Endpoints to prepare for graceful shutdown (/drain, /undrain)
//   - Metrics: Optional Prometheus-compatible metrics endpoint
//   - Profiling: Optional pprof debugging endpoints when enabled
//
// # Usage Example
//
//	handler := httpserver.NewAuctionHandler(engine, sweeper, log)
//	srv, err := httpserver.New(cfg, handler)
//	if err != nil {
//	    return err
//	}
//	srv.RunInBackground()
//	defer srv.Shutdown()
//
// # Error Mapping
//
// Engine errors map onto HTTP statuses by code: validation errors answer
// 400, busy channels 409, missing auctions 404, policy rejections 422,
// and persistence failures 500. The JSON body carries the code and the
// human-readable reason.
package httpserver
