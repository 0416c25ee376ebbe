// Package server exposes the extension workspace over HTTP.
//
// The server is a chi router with request-id, logging, recovery, real-ip
// and CORS middleware. Every request is attributed to an identity taken
// from an "Authorization: Bearer <id token>" header or the
// X-Extforge-Identity header; requests with neither use the anonymous
// "local" scope. Each identity has its own workspace, saved projects and
// API key.
//
// # Endpoints
//
//   - /workspace/*: conversation, generation rounds, preview, files,
//     selection, permissions and the zip download
//   - /templates/*: the starter template catalog
//   - /projects/*: saved snapshots of the caller's workspace
//   - /settings/credential: the caller's personal API key
//   - /event: Server-Sent Events for the caller's workspace
//
// The preview document is served with a sandboxing Content-Security-Policy
// so generated scripts run without access to the server's origin.
//
// # Errors
//
// Failures use a single JSON envelope:
//
//	{"error": {"code": "BUSY", "message": "a generation round is already in progress"}}
//
// A rejected concurrent round answers 409, a missing API key 412 and a
// failed generation 502.
package server
