// Package apiclient implements the authenticated fetch primitive every
// backend call goes through.
//
// A Client attaches "Authorization: Bearer <token>" from its TokenSource to
// each request, resolves targets against the configured base URL, and folds
// every non-2xx status, transport failure, or undecodable body into a single
// *RequestError carrying the operation name, the HTTP status, and a
// human-readable detail. Nothing is retried here; callers decide what a
// failure means.
package apiclient
