// Package generator synthesizes passwords from five fixed character-class policies.
//
// A Generator owns a single pseudo-random source and is not safe for concurrent use;
// concurrent callers each need their own instance. The default time-seeded source is
// not cryptographically secure, whatever the policy names suggest. NewCryptoSeeded
// seeds a ChaCha8 stream from the operating system instead.
package generator
