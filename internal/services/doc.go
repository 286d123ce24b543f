// Package services defines shared utilities consumed by the source readers,
// the conversion dispatcher and the Tachi submission client.
//
// Key responsibilities:
//   - Context helpers that stamp the conversion source, playtype and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that separate session
//     failures (missing store, unsupported schema, missing credential,
//     remote failure) so the CLI and metrics can classify them.
//
// Row-level rejections are not errors and never pass through this package;
// see package sources for the Rejection value type.
package services
