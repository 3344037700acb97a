// Package client talks to the flagkeeper HTTP API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     accounts, the challenge board, flag submission, the scoreboard and
//     teams.
//  2. A concrete HTTP implementation (see HTTPClient) that keeps the token
//     pair in memory, sends the access token as a bearer header and, when
//     the server answers token_expired, refreshes once and retries.
//
// # Error Handling
//
// Transport failures are reported as ErrUnavailable. Server-side failures
// come back as *APIError carrying the error class from the response body;
// ErrUnauthorized is matched by errors.Is for every 401 response.
package client
