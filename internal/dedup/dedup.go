// Package dedup resolves near-duplicate institutions within a country by
// fuzzy name and address similarity.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// Options controls FindDuplicates.
type Options struct {
	// Threshold is the similarity a pair must exceed to be a duplicate.
	Threshold int
	// Strategy is config.DedupPairwise or config.DedupBlocked.
	Strategy string
}

// Key is the text compared for a candidate: name and address joined by a space.
func Key(c domain.DedupCandidate) string {
	return strings.TrimSpace(c.Name + " " + c.Address)
}

type prepared struct {
	id    int64
	chars []string
	hist  map[string]int
	block string
}

func prepare(c domain.DedupCandidate) prepared {
	sorted := SortTokens(Key(c))
	p := prepared{id: c.ID, chars: chars(sorted), hist: map[string]int{}}
	for _, ch := range p.chars {
		p.hist[ch]++
	}
	if first, _, ok := strings.Cut(sorted, " "); ok {
		p.block = first
	} else {
		p.block = sorted
	}
	return p
}

// FindDuplicates returns the ids to delete: for every pair whose similarity
// exceeds the threshold, the higher id. Ids are returned in ascending order.
func FindDuplicates(cands []domain.DedupCandidate, opts Options) []int64 {
	items := make([]prepared, len(cands))
	for i, c := range cands {
		items[i] = prepare(c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].id < items[j].id })

	marked := map[int64]bool{}
	if opts.Strategy == config.DedupBlocked {
		blocks := map[string][]prepared{}
		for _, it := range items {
			blocks[it.block] = append(blocks[it.block], it)
		}
		for _, block := range blocks {
			scan(block, opts.Threshold, marked)
		}
	} else {
		scan(items, opts.Threshold, marked)
	}

	ids := make([]int64, 0, len(marked))
	for id := range marked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// scan compares every pair of items (sorted by id) and marks the higher id of
// each pair above threshold. The outer loop fixes the higher element so its
// matcher state is reused, and stops once that element is marked.
func scan(items []prepared, threshold int, marked map[int64]bool) {
	m := difflib.NewMatcher(nil, nil)
	for j := 1; j < len(items); j++ {
		hi := items[j]
		if len(hi.chars) == 0 {
			continue
		}
		m.SetSeq2(hi.chars)
		for i := 0; i < j; i++ {
			lo := items[i]
			if lo.id == hi.id || len(lo.chars) == 0 {
				continue
			}
			if percent(upperBound(lo, hi)) <= threshold {
				continue
			}
			m.SetSeq1(lo.chars)
			if percent(m.Ratio()) > threshold {
				marked[hi.id] = true
				break
			}
		}
	}
}

// upperBound is an exact ceiling on the matcher ratio: matched characters
// can never exceed the multiset intersection of the two strings.
func upperBound(a, b prepared) float64 {
	total := len(a.chars) + len(b.chars)
	small, large := a.hist, b.hist
	if len(small) > len(large) {
		small, large = large, small
	}
	common := 0
	for ch, n := range small {
		common += min(n, large[ch])
	}
	return 2 * float64(common) / float64(total)
}

// Store is the persistence the Deduplicator needs.
type Store interface {
	ListDedupCandidates(ctx context.Context, country string) ([]domain.DedupCandidate, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// Result summarizes one deduplication pass.
type Result struct {
	Candidates int
	Removed    int64
	IDs        []int64
	Duration   time.Duration
}

// Deduplicator removes near-duplicate institutions of one country.
type Deduplicator struct {
	store Store
	opts  Options
	log   logger.Logger
}

// New creates a Deduplicator from the dedup configuration.
func New(store Store, cfg config.DedupConfig, log logger.Logger) *Deduplicator {
	return &Deduplicator{
		store: store,
		opts:  Options{Threshold: cfg.Threshold, Strategy: cfg.Strategy},
		log:   log.With(logger.Component("dedup")),
	}
}

// Deduplicate loads the persisted set for country, finds duplicates and
// deletes them in one batch. The lowest id of each duplicate group is kept.
func (d *Deduplicator) Deduplicate(ctx context.Context, country string) (Result, error) {
	start := time.Now()

	cands, err := d.store.ListDedupCandidates(ctx, country)
	if err != nil {
		return Result{}, fmt.Errorf("list dedup candidates: %w", err)
	}

	res := Result{Candidates: len(cands)}
	res.IDs = FindDuplicates(cands, d.opts)

	if len(res.IDs) > 0 {
		removed, delErr := d.store.DeleteByIDs(ctx, res.IDs)
		if delErr != nil {
			return res, fmt.Errorf("delete duplicates: %w", delErr)
		}
		res.Removed = removed
	}
	res.Duration = time.Since(start)

	d.log.Info("Deduplication finished",
		logger.String("country", country),
		logger.String("strategy", d.opts.Strategy),
		logger.Int("candidates", res.Candidates),
		logger.Int64("removed", res.Removed),
		logger.Duration("duration", res.Duration),
	)
	return res, nil
}
