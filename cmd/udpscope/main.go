// Package main provides the entry point for the udpscope CLI.
//
// udpscope is a bidirectional UDP endpoint. It sends datagrams and, for every
// datagram it receives, reports whether the payload looks like text, JSON or
// binary, together with running traffic statistics.
//
// Usage:
//
//	udpscope listen --bind 0.0.0.0:8888
//	udpscope send "hello" --to 127.0.0.1:8888
//	udpscope chat --bind :8888 --to 127.0.0.1:9999
//
// See --help for all available options.
package main

func main() {
	Execute()
}
