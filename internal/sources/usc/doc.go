// Package usc reads unnamed-sdvx-clone's maps.db.
//
// Scores and charts live in one database. Only schema versions 19 and 20 are
// read; anything else aborts the run before a single row is touched.
package usc
