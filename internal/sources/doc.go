// Package sources holds what the three score-store readers share: read-only
// SQLite access with NotFound/Corrupt classification and busy retries, the
// Rejection value every normalizer produces for skipped rows, and the Report
// that collects a conversion run's accepted scores and rejections.
//
// The per-client readers and normalizers live in the lr2, beatoraja and usc
// subpackages.
package sources
