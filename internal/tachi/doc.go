// Package tachi submits batch-manual documents to a Tachi server.
//
// Submit drives an explicit state machine:
//
//	INIT -> SUBMITTING -> [POLLING] -> SUCCESS | FAILURE
//
// Servers that process imports asynchronously answer the submission with a
// poll URL; older servers answer with the finished import directly. Both are
// detected from the response body. Every failure after the request leaves
// INIT persists the document to the configured fallback directory.
package tachi
