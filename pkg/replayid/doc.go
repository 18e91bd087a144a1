// Package replayid tracks single-use opaque identifiers that prove the
// presenter holds the most recent version of a cookie's state.
//
// Every mutating operation on a cookie consumes the presented id and
// issues a fresh one; a presented id that is no longer recorded, or whose
// recorded expiry differs from the expected one, signals a replayed or
// forked cookie. Correctness under concurrent requests racing on the same
// cookie relies on optimistic compare-and-delete rather than locks: the
// exact previous id and its exact previous expiry are both verified, and a
// failed comparison rejects the request instead of retrying.
//
// MemoryStore is single-instance; RedisStore implements the same contract
// on a shared server using Lua scripts for the compare-and-* steps.
package replayid
