package redis

import "errors"

var (
	ErrNoConnectionURL = errors.New("redis: connection URL is empty, set REDIS_URL")
	ErrInvalidURL      = errors.New("redis: invalid connection URL")
	ErrNotReady        = errors.New("redis: server did not answer before the deadline")
	ErrUnhealthy       = errors.New("redis: server is unreachable")
)
