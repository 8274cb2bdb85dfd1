// Package validator provides rule-based validation that reports every failed
// field at once.
//
// Rules are plain values built by constructor functions and evaluated by
// Apply:
//
//	err := validator.Apply(
//		validator.RequiredString("user_id", req.UserID),
//		validator.InList("channel", req.Channel, channels),
//	)
//
// Apply returns ValidationErrors, which callers may wrap with their own
// sentinel and later recover with ExtractValidationErrors.
package validator
