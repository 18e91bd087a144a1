// Package compact encodes integers in base-36 to shrink millisecond
// timestamps and seconds counts on the cookie wire format and in response
// bodies.
package compact
