package batchmanual

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zkrising/tachi-import-scripts/internal/services"
)

// Encode writes batch as tab-indented JSON, the layout used for fallback files.
func Encode(w io.Writer, batch Batch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	if err := enc.Encode(batch); err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	return nil
}

// Decode reads one batch and validates it.
func Decode(r io.Reader) (Batch, error) {
	var batch Batch
	dec := json.NewDecoder(r)
	if err := dec.Decode(&batch); err != nil {
		return Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	if err := batch.Validate(); err != nil {
		return Batch{}, err
	}
	for i := range batch.Scores {
		batch.Scores[i].Game = batch.Meta.Game
		batch.Scores[i].Playtype = batch.Meta.Playtype
	}
	return batch, nil
}

// Validate checks the structural rules a batch must satisfy before submission.
func (b Batch) Validate() error {
	var problems []string
	switch b.Meta.Game {
	case GameBMS:
		if b.Meta.Playtype != Playtype7K && b.Meta.Playtype != Playtype14K {
			problems = append(problems, fmt.Sprintf("playtype %q is not valid for bms", b.Meta.Playtype))
		}
	case GameUSC:
		if _, ok := ParseUSCPlaytype(string(b.Meta.Playtype)); !ok {
			problems = append(problems, fmt.Sprintf("playtype %q is not valid for usc", b.Meta.Playtype))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown game %q", b.Meta.Game))
	}
	if strings.TrimSpace(b.Meta.Service) == "" {
		problems = append(problems, "meta.service is empty")
	}
	for i, s := range b.Scores {
		if strings.TrimSpace(s.Identifier) == "" {
			problems = append(problems, fmt.Sprintf("scores[%d]: identifier is empty", i))
		}
		if s.Score < 0 {
			problems = append(problems, fmt.Sprintf("scores[%d]: score %d is negative", i, s.Score))
		}
		if s.Lamp == "" {
			problems = append(problems, fmt.Sprintf("scores[%d]: lamp is empty", i))
		}
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "batchmanual", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}
