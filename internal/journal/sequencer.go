package journal

import (
	"fmt"
	"sort"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
)

// RangeSize is how many suffixes each entry kind owns.
const RangeSize = 10000

// DefaultBases are the first suffix of each kind's range.
func DefaultBases() map[model.EntryKind]int {
	return map[model.EntryKind]int{
		model.KindDividend:   10001,
		model.KindPurchase:   20001,
		model.KindSale:       30001,
		model.KindUnrealized: 40001,
	}
}

// Sequencer hands out journal number suffixes for one run. Each kind counts
// up from its base inside its own range. A Sequencer is not shared between
// runs and is not safe for concurrent use.
type Sequencer struct {
	bases map[model.EntryKind]int
	next  map[model.EntryKind]int
}

// NewSequencer validates that the ranges are disjoint. Missing kinds use
// their default base.
func NewSequencer(bases map[model.EntryKind]int) (*Sequencer, error) {
	merged := DefaultBases()
	for k, v := range bases {
		if _, err := model.ParseEntryKind(string(k)); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("%w: %s suffix base must be positive, got %d", common.ErrInvalidConfig, k, v)
		}
		merged[k] = v
	}

	kinds := make([]model.EntryKind, 0, len(merged))
	for k := range merged {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return merged[kinds[i]] < merged[kinds[j]] })
	for i := 1; i < len(kinds); i++ {
		prev, cur := kinds[i-1], kinds[i]
		if merged[prev]+RangeSize > merged[cur] {
			return nil, fmt.Errorf("%w: %s range starting %d overlaps %s range starting %d",
				common.ErrInvalidConfig, prev, merged[prev], cur, merged[cur])
		}
	}

	next := make(map[model.EntryKind]int, len(merged))
	for k, v := range merged {
		next[k] = v
	}
	return &Sequencer{bases: merged, next: next}, nil
}

// Next returns the next suffix for kind and advances the counter.
func (s *Sequencer) Next(kind model.EntryKind) (int, error) {
	n, ok := s.next[kind]
	if !ok {
		return 0, fmt.Errorf("unknown entry kind %q", kind)
	}
	if n >= s.bases[kind]+RangeSize {
		return 0, fmt.Errorf("%w: %s after %d", common.ErrSuffixRangeExhausted, kind, n-1)
	}
	s.next[kind] = n + 1
	return n, nil
}

// Peek returns the suffix Next would hand out without advancing.
func (s *Sequencer) Peek(kind model.EntryKind) int {
	return s.next[kind]
}

// Issued reports how many suffixes of kind have been handed out.
func (s *Sequencer) Issued(kind model.EntryKind) int {
	return s.next[kind] - s.bases[kind]
}
