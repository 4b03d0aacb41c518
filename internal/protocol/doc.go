// Package protocol implements the one-line text request format of the password service.
// It decodes datagram payloads into help or generate commands, validates the requested
// length and holds the fixed help and error replies sent back to clients.
package protocol
