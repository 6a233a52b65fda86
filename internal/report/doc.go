// Package report renders udpscope results for people and programs.
//
// Three Writers are provided:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: one JSON document per record, for tool integration
//   - MarkdownWriter: Markdown with tables and a mermaid pie chart of
//     payload formats, for sharing captures in issues and docs
//
// Every Writer renders the same three records: a received packet, a
// traffic summary and the saved session history.
package report
