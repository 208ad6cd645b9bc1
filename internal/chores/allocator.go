package chores

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Assignment is one title handed to one assignee.
type Assignment struct {
	Title    string `json:"title"`
	Assignee string `json:"assignee"`
}

// Allocator spreads titles over assignees so the running counts stay
// balanced. Ties are broken uniformly at random.
type Allocator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewAllocator uses src for tie-breaking; nil seeds from the clock.
func NewAllocator(src rand.Source) *Allocator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Allocator{rnd: rand.New(src)}
}

// Allocate assigns every title, in order, to the assignee with the lowest
// count in counts, incrementing that count before moving on. Assignees are
// matched case-insensitively and reported lower-cased. counts is updated in
// place; missing entries count as zero.
func (a *Allocator) Allocate(titles, assignees []string, counts map[string]int) ([]Assignment, error) {
	pool := NormalizeAssignees(assignees)
	if len(pool) == 0 {
		return nil, ErrNoEligibleAssignees
	}
	if counts == nil {
		counts = map[string]int{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Assignment, 0, len(titles))
	tied := make([]string, 0, len(pool))
	for _, title := range titles {
		low := math.MaxInt
		tied = tied[:0]
		for _, p := range pool {
			switch c := counts[p]; {
			case c < low:
				low = c
				tied = append(tied[:0], p)
			case c == low:
				tied = append(tied, p)
			}
		}
		pick := tied[0]
		if len(tied) > 1 {
			pick = tied[a.rnd.Intn(len(tied))]
		}
		counts[pick]++
		out = append(out, Assignment{Title: title, Assignee: pick})
	}
	return out, nil
}

// NormalizeAssignees trims and lower-cases identifiers, dropping empties and
// duplicates while keeping first-seen order.
func NormalizeAssignees(in []string) []string {
	out := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	})
	return lo.Uniq(out)
}

// normalizeTitles trims titles and drops empties and exact duplicates.
func normalizeTitles(in []string) []string {
	out := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	return lo.Uniq(out)
}

// normalizeCounts folds counters whose keys only differ by case.
func normalizeCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out[k] += max(v, 0)
	}
	return out
}
