// Package rank keeps the best genomes seen so far, ordered by score.
// It is the selection half of the genetic algorithm: genomes of dead cells are
// inserted with their lifetime as score and parents are drawn from what is kept.
package rank

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/google/btree"

	"vlife/internal/genome"
)

// ErrNaNScore is returned when inserting an entry without a comparable score.
var ErrNaNScore = errors.New("rank: score is NaN")

const degree = 8

// Entry is a ranked genome.
type Entry struct {
	Score  float64
	Genome *genome.Genome
	seq    uint64
}

func less(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.seq < b.seq
}

// Rank is a bounded leaderboard. It is not safe for concurrent use.
type Rank struct {
	tree    *btree.BTreeG[Entry]
	maxSize int
	seq     uint64
}

// New creates a rank keeping at most maxSize genomes.
func New(maxSize int) *Rank {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Rank{
		tree:    btree.NewG(degree, less),
		maxSize: maxSize,
	}
}

// Insert adds a genome. When the rank is full the lowest score is evicted, which may be
// the inserted genome itself. Equal scores are all kept; among them the oldest goes first.
func (r *Rank) Insert(score float64, g *genome.Genome) error {
	if math.IsNaN(score) {
		return ErrNaNScore
	}
	r.seq++
	r.tree.ReplaceOrInsert(Entry{Score: score, Genome: g, seq: r.seq})
	for r.tree.Len() > r.maxSize {
		r.tree.DeleteMin()
	}
	return nil
}

func (r *Rank) Len() int { return r.tree.Len() }
func (r *Rank) MaxSize() int { return r.maxSize }

// Best returns the highest scored entry.
func (r *Rank) Best() (Entry, bool) {
	return r.tree.Max()
}

// Worst returns the lowest scored entry.
func (r *Rank) Worst() (Entry, bool) {
	return r.tree.Min()
}

// ChooseRandom returns a uniformly chosen genome.
func (r *Rank) ChooseRandom(rng *rand.Rand) (*genome.Genome, bool) {
	n := r.tree.Len()
	if n == 0 {
		return nil, false
	}
	skip := rng.IntN(n)
	var picked *genome.Genome
	r.tree.Ascend(func(e Entry) bool {
		if skip == 0 {
			picked = e.Genome
			return false
		}
		skip--
		return true
	})
	return picked, picked != nil
}

// Entries returns the kept entries from best to worst.
func (r *Rank) Entries() []Entry {
	out := make([]Entry, 0, r.tree.Len())
	r.tree.Descend(func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}
