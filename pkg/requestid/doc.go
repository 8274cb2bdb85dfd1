// Package requestid correlates API calls with the dispatch and delivery
// logs they produce.
//
// Middleware attaches an X-Request-ID to every request, reusing the
// client's value when it is short and made of [a-zA-Z0-9_-], and
// LoggerExtractor copies it into slog records as "request_id".
package requestid
