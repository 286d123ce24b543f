// Package convert dispatches a conversion request to the reader for its
// source and assembles the resulting batches.
package convert
