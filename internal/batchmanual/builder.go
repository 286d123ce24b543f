package batchmanual

import "errors"

// ErrEmpty is returned when there are no scores to build batches from.
var ErrEmpty = errors.New("no scores to submit")

type groupKey struct {
	game     Game
	playtype Playtype
}

// Build groups scores by (game, playtype) and stamps each group with the
// service id. Scores keep their input order within a group; groups are ordered
// by first appearance. Combined-mode batches have their random modifier
// cleared regardless of what the normalizer produced.
func Build(service string, scores []Score) ([]Batch, error) {
	if len(scores) == 0 {
		return nil, ErrEmpty
	}

	index := make(map[groupKey]int)
	var batches []Batch
	for _, score := range scores {
		key := groupKey{game: score.Game, playtype: score.Playtype}
		pos, ok := index[key]
		if !ok {
			pos = len(batches)
			index[key] = pos
			batches = append(batches, Batch{Meta: Meta{Game: key.game, Playtype: key.playtype, Service: service}})
		}
		if key.playtype.Combined() {
			score.ScoreMeta.Random = nil
		}
		batches[pos].Scores = append(batches[pos].Scores, score)
	}
	return batches, nil
}

// Count returns the total number of scores across batches.
func Count(batches []Batch) int {
	total := 0
	for _, b := range batches {
		total += len(b.Scores)
	}
	return total
}
