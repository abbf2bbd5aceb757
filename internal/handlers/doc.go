// Package handlers implements the HTTP API surface: image resolution,
// cached image delivery, on-demand enhancement, cache administration,
// health probes, and aggregate statistics.
//
// Handlers hold their dependencies (database, resolver, image cache,
// enhancer) behind small interfaces where tests need substitution and
// as concrete types where the surface is stable.
package handlers
