// Command cachectl administers a running image-resolver server.
//
// Most commands talk to the server's HTTP API:
//
//	cachectl stats                         # cache statistics
//	cachectl clear                         # empty every cache layer
//	cachectl preload URL [URL...]          # warm the image cache
//	cachectl resolve --name "My Group"     # run the resolution chain
//
// The target server defaults to http://localhost:8080 and can be
// changed with --server.
//
// The vacuum command is the exception: it opens the SQLite database
// directly to compact it, and must be run while the server is stopped:
//
//	cachectl vacuum --database-dir /database
package main
