// Package adindex provides an HTTP client for the ad index API.
//
// # Overview
//
// The ad index server owns saved queries, their matched ad content, the
// per-session push subscription record and the pull/notify status of each
// query. This package is the client side of that contract.
//
// # Wire Format
//
// Every operation is a POST to /api/<operation> with a JSON body. Every
// response is wrapped as
//
//	{"data": <payload>, "error": "<message or empty>"}
//
// and a non-empty error is a failure even when the HTTP status is 200.
//
// # Operations
//
//   - new_session, session_exists: session lifecycle
//   - update_push_sub: replace or clear (null) the push subscription record
//   - ad_queries, ad_query, insert_ad_query, update_ad_query,
//     delete_ad_query, clear_ad_query, toggle_ad_query_sub: saved queries
//   - ad_content: matched content of one query
//   - ad_query_status: pull/notify status of several queries
//
// All operations except insert_ad_query are idempotent. Identical concurrent
// reads share one round trip.
//
// # Error Handling
//
// Failures are returned as *apperr.Error with type network. Transport
// errors keep their cause, so errors.Is(err, context.Canceled) works.
// Invalid input is rejected before any request with type validation.
//
// # Testing
//
// Package adindextest runs an in-memory implementation of the contract on
// an httptest server.
package adindex
