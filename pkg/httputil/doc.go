// Package httputil provides the HTTP plumbing used to download taxonomy
// dumps.
//
// # Retry
//
// [Retry] runs an operation with exponential backoff. Only errors wrapped
// with [Retryable] are retried, so callers decide what is transient:
//
//   - network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// # Downloads
//
// [Client.Download] streams a URL to a file, retrying transient failures and
// writing through a temporary file so an interrupted transfer never leaves a
// truncated file behind. Every request carries the client's fixed headers;
// NCBI asks that bulk downloads identify the user with a From header.
//
// Defaults:
//
//   - Attempts: 3
//   - Initial backoff: 1 second, doubling
package httputil
