// Package main hosts the webscraper entrypoint.
//
// Architecture overview:
//   - Workflows: internal/workflow runs verify-and-notify (identity gate, page fetch, SES send) and
//     scrape-and-archive (XPath link resolution, file download, strftime key, bucket upload). Both
//     fail fast on the first error and never retry.
//   - Triggers: `webscraper notify` and `webscraper archive` run one event read from a file or
//     stdin; `webscraper serve` exposes POST /v1/notify and /v1/archive plus /healthz, /readyz and
//     /metrics through internal/api.
//   - Backends: SES via aws-sdk-go-v2; storage via GCS, any S3-compatible endpoint (minio-go), the
//     local filesystem or memory, chosen by storage.backend. Pages load through colly, or chromedp
//     when page.loader is headless.
//   - Configuration & plumbing: Viper reads a config file plus WEBSCRAPER_* environment variables;
//     BUCKET_NAME is re-read on every invocation. zap provides structured logging and Prometheus
//     counters track invocations, stage failures and uploaded bytes.
//
// Quick checklist:
//   - Configure env vars: BUCKET_NAME, WEBSCRAPER_AWS_REGION, WEBSCRAPER_STORAGE_BACKEND and the
//     backend's own settings (WEBSCRAPER_STORAGE_MINIO_*, WEBSCRAPER_STORAGE_LOCAL_BASE_DIR).
//   - Run once: echo '{"websiteUrl":"...","xpath":"//a","filePrefixPattern":"_%Y%m%d"}' |
//     go run ./cmd/webscraper archive
//   - Serve: go run ./cmd/webscraper serve --config config.yaml
package main
