package ingest

import (
	"context"
	"fmt"
	"sort"
)

// CurrentWeek returns the smallest week whose earliest kickoff is still in the
// future, else the largest week with any kickoff, else 1.
func (s *Service) CurrentWeek(ctx context.Context, season int) (int, error) {
	games, err := s.store.ListGamesBySeason(ctx, season)
	if err != nil {
		return 0, fmt.Errorf("failed to list games: %w", err)
	}

	earliest := make(map[int]int64)
	for _, g := range games {
		if g.Kickoff == nil {
			continue
		}
		k := g.Kickoff.UnixNano()
		if cur, ok := earliest[g.Week]; !ok || k < cur {
			earliest[g.Week] = k
		}
	}
	if len(earliest) == 0 {
		return 1, nil
	}

	weeks := make([]int, 0, len(earliest))
	for w := range earliest {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	now := s.opts.Now().UnixNano()
	for _, w := range weeks {
		if earliest[w] > now {
			return w, nil
		}
	}
	return weeks[len(weeks)-1], nil
}
