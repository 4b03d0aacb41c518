// Package client implements the UDP side of the password protocol used by the
// interactive client: one request datagram out, one reply datagram back, no retries.
package client
