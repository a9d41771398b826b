// Package api hosts the HTTP trigger for both workflows. Routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/notify runs verify-and-notify and echoes the event.
//   - POST /v1/archive runs scrape-and-archive and reports the upload status code.
package api
