// Package log provides logging for udpscope with automatic redaction of
// sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Redaction of attribute values whose key names suggest secrets
//   - Redaction of credential-looking substrings inside payload previews
//   - Bounded, escaped previews of raw datagram payloads
//   - Verbose mode switching between Debug and Warn levels
//
// # Why payloads need redaction
//
// udpscope logs a short preview of every received datagram at debug level.
// Datagrams on a shared network regularly carry tokens, passwords or
// "Authorization" lines, and debug logs are routinely pasted into issues.
// The RedactingHandler masks those values before they reach any output.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("packet received",
//	    "from", "192.0.2.10:5000",
//	    "preview", log.Preview(payload), // credentials inside are masked
//	)
//
//	slog.SetDefault(logger)
package log
