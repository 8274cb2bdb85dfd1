// Package httpapi serves the notification engine over HTTP.
//
// Routes:
//
//	POST /notifications               dispatch one notification
//	POST /notifications/bulk          dispatch {"notifications": [...]}
//	POST /notifications/template      dispatch from a stored template
//	POST /notifications/{id}/read     mark a sent notification read
//	POST /notifications/{id}/requeue  queue a failed notification for retry
//	POST /queue/{id}/retry            retry one queue entry
//	POST /queue/sweep?limit=N         retry every due queue entry
//	GET  /preferences/{userID}        stored or default preferences
//	PUT  /preferences/{userID}        merge a preferences patch
//	GET  /healthz, /readyz            probes
//
// Answers use the envelope {"data": ...} or {"error": {"code", "message"}}.
// Invalid input maps to 400, unknown records to 404, queue entries that
// cannot be retried to 409 and everything else to 500. A dispatch whose
// delivery failed is still a 200: the outcome carries the failure.
package httpapi
