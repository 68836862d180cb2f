// Package tier buckets items into S/A/B/C/D.
//
// Two schemes coexist and answer different questions. Classify is relative:
// it min-max normalises vote counts within one category, so it says how an
// item compares to its peers right now. Absolute maps a raw count onto fixed
// popularity brackets and is used on single-item views. They are kept apart
// on purpose and will disagree for the same counts.
package tier

// Tier is an item ranking bucket, S highest.
type Tier string

const (
	S Tier = "S"
	A Tier = "A"
	B Tier = "B"
	C Tier = "C"
	D Tier = "D"
)

// All lists tiers from best to worst.
var All = []Tier{S, A, B, C, D}

// Relative thresholds on the normalised score, checked in order.
var relativeThresholds = []struct {
	min  float64
	tier Tier
}{
	{0.8, S},
	{0.6, A},
	{0.4, B},
	{0.2, C},
}

// Absolute thresholds on raw vote counts, checked in order.
var absoluteThresholds = []struct {
	min  int
	tier Tier
}{
	{100, S},
	{50, A},
	{20, B},
	{5, C},
}

// Buckets holds the classified items. Every slice is non-nil so an empty
// category encodes as five empty arrays.
type Buckets[T any] struct {
	S []T `json:"S"`
	A []T `json:"A"`
	B []T `json:"B"`
	C []T `json:"C"`
	D []T `json:"D"`
}

func newBuckets[T any]() Buckets[T] {
	return Buckets[T]{S: []T{}, A: []T{}, B: []T{}, C: []T{}, D: []T{}}
}

// Get returns the bucket for t.
func (b Buckets[T]) Get(t Tier) []T {
	switch t {
	case S:
		return b.S
	case A:
		return b.A
	case B:
		return b.B
	case C:
		return b.C
	default:
		return b.D
	}
}

func (b *Buckets[T]) add(t Tier, item T) {
	switch t {
	case S:
		b.S = append(b.S, item)
	case A:
		b.A = append(b.A, item)
	case B:
		b.B = append(b.B, item)
	case C:
		b.C = append(b.C, item)
	default:
		b.D = append(b.D, item)
	}
}

// Len is the total number of classified items.
func (b Buckets[T]) Len() int {
	return len(b.S) + len(b.A) + len(b.B) + len(b.C) + len(b.D)
}

// Classify assigns each item a relative tier from its vote count, read with
// votes. Within a bucket items keep their input order.
func Classify[T any](items []T, votes func(T) int) Buckets[T] {
	out := newBuckets[T]()
	if len(items) == 0 {
		return out
	}

	minVotes, maxVotes := votes(items[0]), votes(items[0])
	for _, it := range items[1:] {
		v := votes(it)
		if v < minVotes {
			minVotes = v
		}
		if v > maxVotes {
			maxVotes = v
		}
	}

	for _, it := range items {
		out.add(Relative(votes(it), minVotes, maxVotes), it)
	}
	return out
}

// Relative returns the tier of a single count given the category's minimum
// and maximum. A zero range is treated as 1, so a fully tied category lands
// entirely in D.
func Relative(votes, minVotes, maxVotes int) Tier {
	spread := maxVotes - minVotes
	if spread == 0 {
		spread = 1
	}
	normalized := float64(votes-minVotes) / float64(spread)
	for _, th := range relativeThresholds {
		if normalized >= th.min {
			return th.tier
		}
	}
	return D
}

// Absolute returns the fixed popularity bracket for a raw count.
func Absolute(votes int) Tier {
	for _, th := range absoluteThresholds {
		if votes >= th.min {
			return th.tier
		}
	}
	return D
}
