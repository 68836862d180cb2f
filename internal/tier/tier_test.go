package tier

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name  string
	votes int
}

func votesOf(e entry) int { return e.votes }

func tiersOf(b Buckets[entry]) map[string]Tier {
	out := make(map[string]Tier)
	for _, t := range All {
		for _, e := range b.Get(t) {
			out[e.name] = t
		}
	}
	return out
}

func TestClassify_Empty(t *testing.T) {
	b := Classify(nil, votesOf)

	for _, tr := range All {
		assert.NotNil(t, b.Get(tr), "bucket %s", tr)
		assert.Empty(t, b.Get(tr), "bucket %s", tr)
	}
	assert.Equal(t, 0, b.Len())
}

func TestClassify_AllTiedLandInD(t *testing.T) {
	items := []entry{{"a", 10}, {"b", 10}, {"c", 10}}

	b := Classify(items, votesOf)

	assert.Len(t, b.D, 3)
	assert.Equal(t, 3, b.Len())
}

func TestClassify_SingleItemIsD(t *testing.T) {
	b := Classify([]entry{{"only", 42}}, votesOf)

	assert.Equal(t, []entry{{"only", 42}}, b.D)
}

func TestClassify_EvenSpread(t *testing.T) {
	items := []entry{{"v0", 0}, {"v25", 25}, {"v50", 50}, {"v75", 75}, {"v100", 100}}

	got := tiersOf(Classify(items, votesOf))

	assert.Equal(t, map[string]Tier{
		"v0":   D,
		"v25":  C,
		"v50":  B,
		"v75":  A,
		"v100": S,
	}, got)
}

func TestClassify_BoundariesAreInclusive(t *testing.T) {
	// min 0, max 5: normalised scores are exactly 0, .2, .4, .6, .8, 1
	items := []entry{{"n0", 0}, {"n1", 1}, {"n2", 2}, {"n3", 3}, {"n4", 4}, {"n5", 5}}

	got := tiersOf(Classify(items, votesOf))

	assert.Equal(t, D, got["n0"])
	assert.Equal(t, C, got["n1"])
	assert.Equal(t, B, got["n2"])
	assert.Equal(t, A, got["n3"])
	assert.Equal(t, S, got["n4"])
	assert.Equal(t, S, got["n5"])
}

func TestClassify_NonZeroMinimum(t *testing.T) {
	items := []entry{{"low", 9}, {"mid", 12}, {"high", 15}}

	got := tiersOf(Classify(items, votesOf))

	assert.Equal(t, D, got["low"])
	assert.Equal(t, B, got["mid"])
	assert.Equal(t, S, got["high"])
}

func TestClassify_OrderIndependentAndReproducible(t *testing.T) {
	items := []entry{
		{"a", 3}, {"b", 17}, {"c", 0}, {"d", 8}, {"e", 17},
		{"f", 11}, {"g", 1}, {"h", 14}, {"i", 6}, {"j", 9},
	}
	want := tiersOf(Classify(items, votesOf))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]entry(nil), items...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		require.Equal(t, want, tiersOf(Classify(shuffled, votesOf)))
	}
}

func TestClassify_KeepsInputOrderWithinBucket(t *testing.T) {
	items := []entry{{"x", 10}, {"y", 10}, {"z", 0}}

	b := Classify(items, votesOf)

	assert.Equal(t, []entry{{"x", 10}, {"y", 10}}, b.S)
	assert.Equal(t, []entry{{"z", 0}}, b.D)
}

func TestAbsolute(t *testing.T) {
	tests := []struct {
		votes int
		want  Tier
	}{
		{0, D},
		{4, D},
		{5, C},
		{19, C},
		{20, B},
		{49, B},
		{50, A},
		{99, A},
		{100, S},
		{1000, S},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Absolute(tt.votes), "votes=%d", tt.votes)
	}
}

func TestRelativeAndAbsoluteDisagree(t *testing.T) {
	// 3 of 0..3 is the category leader but a small absolute bracket.
	assert.Equal(t, S, Relative(3, 0, 3))
	assert.Equal(t, D, Absolute(3))
}
