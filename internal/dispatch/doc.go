// Package dispatch turns one request payload into exactly one reply.
// It runs parsing, length validation, type matching and generation in that order,
// stopping at the first failure, and keeps no state between requests.
package dispatch
