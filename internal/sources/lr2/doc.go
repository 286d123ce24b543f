// Package lr2 reads Lunatic Rave 2 score databases and normalizes their rows
// into bms batch-manual scores.
//
// LR2 keeps scores and the song catalog in separate SQLite files, so every
// completed score row is joined to song.db with a per-row keyed lookup.
package lr2
