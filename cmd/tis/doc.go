// Package main hosts the tis CLI entrypoint and command graph.
//
// The Cobra command tree converts local rhythm game score databases into
// batch-manual documents, submits them to a Tachi server and manages the
// fallback copies left behind by failed imports. Configuration loading,
// logger construction and metrics output are resolved once per invocation in
// commandContext so subcommands only deal with their own flags.
package main
