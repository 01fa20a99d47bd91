// Package http exposes session managers over HTTP: a JSON API validated
// against an embedded OpenAPI document, an SSE entry stream and a WebSocket REPL.
package http
