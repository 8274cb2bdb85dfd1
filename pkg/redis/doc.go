// Package redis connects to Redis with retries and exposes a small
// namespaced key/value Storage plus a readiness probe.
package redis
