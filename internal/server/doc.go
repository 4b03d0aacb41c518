// Package server implements the UDP password server and its HTTP monitoring API.
// Every datagram is answered with exactly one reply datagram; workers each own a
// generator so no random source is shared between goroutines.
package server
