package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/dealerd/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := New()
	require.Equal(t, 52, d.Remaining())

	cards, err := d.Deal(52)
	require.NoError(t, err)

	seen := make(map[Card]bool)
	for _, c := range cards {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestDealWithoutReplacement(t *testing.T) {
	d := New()

	first, err := d.Deal(2)
	require.NoError(t, err)
	assert.Equal(t, 50, d.Remaining())

	rest, err := d.Deal(50)
	require.NoError(t, err)
	for _, c := range rest {
		assert.NotContains(t, first, c)
	}
}

func TestDealTooManyFails(t *testing.T) {
	d := New()
	_, err := d.Deal(10)
	require.NoError(t, err)

	_, err = d.Deal(43)
	assert.Error(t, err)
	// A failed deal must not consume cards.
	assert.Equal(t, 42, d.Remaining())
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	a := New()
	b := New()
	a.Shuffle(randutil.New(42))
	b.Shuffle(randutil.New(42))

	ca, err := a.Deal(52)
	require.NoError(t, err)
	cb, err := b.Deal(52)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)

	c := New()
	c.Shuffle(randutil.New(43))
	cc, err := c.Deal(52)
	require.NoError(t, err)
	assert.NotEqual(t, ca, cc)
}

func TestStackedDeckKeepsTopOrder(t *testing.T) {
	d := Stacked(MustParse("As"), MustParse("Kd"), MustParse("2c"))
	require.Equal(t, 52, d.Remaining())

	top, err := d.Deal(3)
	require.NoError(t, err)
	assert.Equal(t, []Card{MustParse("As"), MustParse("Kd"), MustParse("2c")}, top)
}

func TestCardTagRoundTrip(t *testing.T) {
	for _, tag := range []string{"As", "Td", "2c", "9h", "Qs"} {
		c, err := Parse(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, c.String())
	}

	for _, tag := range []string{"", "A", "Asx", "1s", "Ax"} {
		_, err := Parse(tag)
		assert.Error(t, err, "tag %q", tag)
	}
}
