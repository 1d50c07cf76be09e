package application

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

var errSearchBudgetExceeded = errors.New("search budget exceeded")

// Selector picks the notes of an (asset, owner) pair that cover a target
// amount. It only reads, the result is advisory until the notes are spent.
type Selector struct {
	index  ports.ValueIndex
	ledger *Ledger
}

func NewSelector(index ports.ValueIndex, ledger *Ledger) *Selector {
	return &Selector{index, ledger}
}

// Select prefers, in order, an exact cover with the fewest notes, then the
// cover with the fewest notes and the smallest remainder, then the one
// using higher (or lower, depending on the tie-break) values first.
func (s *Selector) Select(
	ctx context.Context, asset, owner string, target uint64, opts SelectOptions,
) (*Selection, error) {
	opts = opts.withDefaults(SelectOptions{})

	groups, total, err := s.available(ctx, asset, owner)
	if err != nil {
		return nil, err
	}
	if total < target {
		return nil, domain.InsufficientFundsError{Available: total, Target: target}
	}
	if target == 0 {
		return &Selection{NoteHashes: []string{}}, nil
	}

	if largest := sumOfLargest(groups, opts.MaxNotes); largest < target {
		return nil, domain.TooManyNotesError{MaxNotes: opts.MaxNotes, Target: target}
	}

	if opts.TieBreak == TieBreakLow {
		sort.Slice(groups, func(i, j int) bool { return groups[i].value < groups[j].value })
	} else {
		sort.Slice(groups, func(i, j int) bool { return groups[i].value > groups[j].value })
	}

	srch := newSearch(groups, target, opts.SearchBudget)
	picks, err := srch.run(opts.MaxNotes)
	if err != nil {
		if !errors.Is(err, errSearchBudgetExceeded) {
			return nil, err
		}
		log.WithFields(log.Fields{
			"asset":  asset,
			"budget": opts.SearchBudget,
		}).Debug("selection search budget exceeded, falling back to greedy")
		picks = greedy(groups, target, opts.MaxNotes)
	}
	if picks == nil {
		return nil, domain.TooManyNotesError{MaxNotes: opts.MaxNotes, Target: target}
	}

	selection := &Selection{NoteHashes: make([]string, 0)}
	for i, count := range picks {
		for _, hash := range groups[i].hashes[:count] {
			selection.NoteHashes = append(selection.NoteHashes, hash)
			selection.Total += groups[i].value
		}
	}
	selection.Remainder = selection.Total - target
	return selection, nil
}

// Balance is the sum of the spendable notes of the pair.
func (s *Selector) Balance(ctx context.Context, asset, owner string) (uint64, error) {
	_, total, err := s.available(ctx, asset, owner)
	return total, err
}

type noteGroup struct {
	value  uint64
	hashes []string
}

// available loads the value index and drops every hash the ledger does not
// know as a spendable note of the pair. Zero value notes are counted in no
// group since they can never help covering a target.
func (s *Selector) available(
	ctx context.Context, asset, owner string,
) ([]noteGroup, uint64, error) {
	buckets, err := s.index.Load(ctx, asset, owner)
	if err != nil {
		return nil, 0, err
	}

	groups := make([]noteGroup, 0, len(buckets))
	total := uint64(0)
	for _, bucket := range buckets {
		if bucket.Value == 0 {
			continue
		}
		hashes := make([]string, 0, len(bucket.Hashes))
		for _, hash := range bucket.Hashes {
			note, err := s.ledger.Get(ctx, hash)
			if err != nil {
				if errors.Is(err, domain.ErrNoteNotFound) {
					continue
				}
				return nil, 0, err
			}
			if !note.Spendable() || note.Asset != asset || note.Owner != owner ||
				note.Value != bucket.Value {
				continue
			}
			hashes = append(hashes, hash)
			total = addSat(total, bucket.Value)
		}
		if len(hashes) > 0 {
			groups = append(groups, noteGroup{bucket.Value, hashes})
		}
	}
	return groups, total, nil
}

type search struct {
	groups []noteGroup
	// upper bound on the value of any note in groups[i:].
	suffixMax []uint64
	target    uint64
	budget    int
	steps     int

	picks     []int
	best      []int
	bestSum   uint64
	exactOnly bool
}

func newSearch(groups []noteGroup, target uint64, budget int) *search {
	suffixMax := make([]uint64, len(groups)+1)
	for i := len(groups) - 1; i >= 0; i-- {
		suffixMax[i] = suffixMax[i+1]
		if groups[i].value > suffixMax[i] {
			suffixMax[i] = groups[i].value
		}
	}
	return &search{
		groups:    groups,
		suffixMax: suffixMax,
		target:    target,
		budget:    budget,
		picks:     make([]int, len(groups)),
	}
}

// run returns how many notes to take from each group, nil if there is no
// cover with at most maxNotes notes.
func (s *search) run(maxNotes int) ([]int, error) {
	s.exactOnly = true
	for k := 1; k <= maxNotes; k++ {
		if err := s.visit(0, k, 0); err != nil {
			return nil, err
		}
		if s.best != nil {
			return s.best, nil
		}
	}

	s.exactOnly = false
	for k := 1; k <= maxNotes; k++ {
		s.bestSum = math.MaxUint64
		if err := s.visit(0, k, 0); err != nil {
			return nil, err
		}
		if s.best != nil {
			return s.best, nil
		}
	}
	return nil, nil
}

// visit enumerates the ways of taking exactly left more notes from
// groups[i:], taking as many notes as possible from earlier groups first.
// The first cover found wins ties.
func (s *search) visit(i, left int, sum uint64) error {
	s.steps++
	if s.steps > s.budget {
		return errSearchBudgetExceeded
	}

	if left == 0 {
		s.record(sum)
		return nil
	}
	if i >= len(s.groups) {
		return nil
	}
	if addSat(sum, mulSat(s.suffixMax[i], uint64(left))) < s.target {
		return nil
	}

	group := s.groups[i]
	max := len(group.hashes)
	if left < max {
		max = left
	}
	for count := max; count >= 0; count-- {
		next := addSat(sum, mulSat(group.value, uint64(count)))
		if s.pruned(next) {
			continue
		}
		s.picks[i] = count
		err := s.visit(i+1, left-count, next)
		s.picks[i] = 0
		if err != nil {
			return err
		}
		if s.exactOnly && s.best != nil {
			return nil
		}
	}
	return nil
}

func (s *search) pruned(sum uint64) bool {
	if s.exactOnly {
		return sum > s.target
	}
	return s.best != nil && sum >= s.bestSum
}

func (s *search) record(sum uint64) {
	if sum < s.target {
		return
	}
	if s.exactOnly && sum != s.target {
		return
	}
	if s.best != nil && sum >= s.bestSum {
		return
	}
	s.best = append([]int{}, s.picks...)
	s.bestSum = sum
}

// greedy takes the largest notes first and closes with the smallest note
// that covers what is left. Groups keep their search order.
func greedy(groups []noteGroup, target uint64, maxNotes int) []int {
	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return groups[order[a]].value > groups[order[b]].value
	})

	picks := make([]int, len(groups))
	sum := uint64(0)
	for n := 0; n < maxNotes && sum < target; n++ {
		need := target - sum
		fit := -1
		for _, i := range order {
			if picks[i] < len(groups[i].hashes) && groups[i].value >= need {
				fit = i
			}
		}
		if fit >= 0 {
			picks[fit]++
			return picks
		}
		for _, i := range order {
			if picks[i] < len(groups[i].hashes) {
				picks[i]++
				sum = addSat(sum, groups[i].value)
				break
			}
		}
	}
	if sum < target {
		return nil
	}
	return picks
}

func sumOfLargest(groups []noteGroup, n int) uint64 {
	values := make([]uint64, 0)
	for _, g := range groups {
		for range g.hashes {
			values = append(values, g.value)
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })

	sum := uint64(0)
	for i := 0; i < n && i < len(values); i++ {
		sum = addSat(sum, values[i])
	}
	return sum
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func mulSat(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}
