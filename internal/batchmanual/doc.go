// Package batchmanual defines the canonical score-submission document ("batch
// manual") accepted by Tachi's direct-manual import endpoint, the lamp and
// modifier vocabularies the normalizers map into, and the Builder that groups
// normalized scores into per-(game, playtype) batches.
//
// Everything here is pure: no I/O beyond the explicit Encode/Decode helpers,
// no logging and no rejection logic.
package batchmanual
