// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes; readyz pings the store.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/cycles to trigger a pipeline cycle (202 started, 409 busy).
//   - GET /v1/status, /v1/articles/today and /v1/articles/stats for read access.
//   - POST /v1/publish/preview to dry-run a publish.
//
// Routes under /v1 require the X-API-Key header (or api_key query parameter)
// when an API key is configured.
package api
