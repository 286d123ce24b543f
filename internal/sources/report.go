package sources

import (
	"github.com/zkrising/tachi-import-scripts/internal/batchmanual"
)

// Report is the outcome of one conversion run.
type Report struct {
	Source     string
	Rows       int
	Scores     []batchmanual.Score
	Rejections []Rejection
}

// Accept records a converted score.
func (r *Report) Accept(score batchmanual.Score) {
	r.Rows++
	r.Scores = append(r.Scores, score)
}

// Skip records a rejected or filtered row.
func (r *Report) Skip(rej Rejection) {
	r.Rows++
	r.Rejections = append(r.Rejections, rej)
}

// Rejected counts rows skipped as invalid.
func (r Report) Rejected() int {
	n := 0
	for _, rej := range r.Rejections {
		if !rej.Filtered {
			n++
		}
	}
	return n
}

// Filtered counts rows skipped as out of scope.
func (r Report) Filtered() int {
	return len(r.Rejections) - r.Rejected()
}

// Playtypes counts accepted scores per playtype.
func (r Report) Playtypes() map[batchmanual.Playtype]int {
	out := make(map[batchmanual.Playtype]int)
	for _, s := range r.Scores {
		out[s.Playtype]++
	}
	return out
}
