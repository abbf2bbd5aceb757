// Package avatar decides whether a group image URL is a real upload or
// a generated placeholder, and synthesizes deterministic fallback
// avatars (external service URL or locally rendered PNG) when no real
// image exists.
//
// The classifier and the generator are kept in one package on purpose:
// the generator must only ever produce URLs the classifier rejects,
// otherwise the resolution chain would treat its own placeholder as a
// real image and stop falling back.
package avatar
