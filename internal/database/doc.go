// Package database provides SQLite-backed persistence for resolved
// image URLs. Records map a Telegram group URL to its last known good
// image URL and the source that produced it, so resolutions and
// repairs survive process restarts. The database uses WAL mode for
// concurrent reads during writes.
package database
