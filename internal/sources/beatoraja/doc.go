// Package beatoraja reads beatoraja and lr2oraja score databases.
//
// beatoraja keeps scores (score.db) and the song catalog (songdata.db) in
// separate files, so every score row is resolved against the catalog with a
// prepared lookup keyed by the chart's sha256. Only LN-mode 0 rows are read.
package beatoraja
