// Package middleware provides HTTP middleware for the image resolver service.
//
// It includes:
//   - Request ID assignment and propagation
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics
//   - Response compression (gzip) for text and JSON payloads
//   - Configurable filtering for image requests and health checks
package middleware
