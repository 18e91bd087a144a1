// Package redis bootstraps the redis client used by the networked
// key-store and replay-id store implementations: URL-based connect with
// retry and a healthcheck closure.
package redis
