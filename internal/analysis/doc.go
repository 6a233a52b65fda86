// Package analysis turns arbitrary datagram payloads into AnalysisReports.
//
// The package has three parts:
//   - Classifier: guesses text/json/binary and the text encoding
//   - Reinterpret: views the first four bytes as big- and little-endian int32
//   - Engine: composes both into one immutable model.AnalysisReport
//
// Design decision: The analysis surface is total and side-effect-free. Every
// byte sequence, including the empty one, yields a report; a payload nobody
// recognizes is classified as binary instead of producing an error, because
// unrecognized traffic is an expected outcome on an open UDP port. This
// keeps the package testable without any network.
//
// Classification is an ordered list of predicates evaluated left to right,
// and decoding is an ordered table of encodings where the first success
// wins. Both lists, together with the printable-ratio threshold, are
// tunable through options. The defaults are heuristics, not correctness
// properties.
package analysis
