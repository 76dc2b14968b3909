package phh_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/dealerd/internal/deck"
	"github.com/cardroom/dealerd/internal/game"
	"github.com/cardroom/dealerd/internal/gameid"
	"github.com/cardroom/dealerd/internal/phh"
	"github.com/cardroom/dealerd/internal/randutil"
)

// aceHigh ranks any hand leading with the ace of spades above the rest.
type aceHigh struct{}

func (aceHigh) Rank(cards []deck.Card) int {
	if cards[0].String() == "As" {
		return 2
	}
	return 1
}

func newHeadsUpHand(t *testing.T) *game.Hand {
	t.Helper()
	d := deck.Stacked(
		deck.MustParse("As"), deck.MustParse("Ad"),
		deck.MustParse("Kh"), deck.MustParse("Kd"),
	)
	h := game.NewHand(log.New(io.Discard), aceHigh{}, randutil.New(1),
		game.WithID(gameid.Generate()),
		game.WithBlind(10),
		game.WithDeck(d),
	)
	require.NoError(t, h.AddPlayer(1))
	require.NoError(t, h.AddPlayer(2))
	require.NoError(t, h.Start())
	return h
}

func TestNormalizeCard(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10h", "Th"},
		{"10H", "Th"},
		{"ah", "Ah"},
		{"As", "As"},
		{"??", "??"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, phh.NormalizeCard(tt.in), "NormalizeCard(%q)", tt.in)
	}
}

func TestFormatAction(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		action    game.ActionType
		totalBet  int
		committed int
		want      string
		emit      bool
	}{
		{"fold", 0, game.Fold, 0, 0, "p1 f", true},
		{"check", 1, game.Check, 0, 0, "p2 cc", true},
		{"call", 3, game.Call, 50, 40, "p4 cc", true},
		{"raise", 0, game.Raise, 120, 100, "p1 cbr 120", true},
		{"all in", 2, game.AllIn, 350, 350, "p3 cbr 350", true},
		{"carried all in", 2, game.AllIn, 350, 0, "", false},
	}
	for _, tt := range tests {
		got, ok := phh.FormatAction(tt.index, tt.action, tt.totalBet, tt.committed)
		assert.Equal(t, tt.emit, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestBuildCheckedDownHand(t *testing.T) {
	h := newHeadsUpHand(t)

	_, _, err := h.Apply(1, game.Action{Type: game.Call})
	require.NoError(t, err)
	for round := 0; round < 3; round++ {
		require.NoError(t, h.EndRound())
		require.NoError(t, h.StartRound())
		for _, p := range h.PositionalOrder() {
			if h.CurrentRound().NeedsAction(p) {
				_, _, err := h.Apply(p, game.Action{Type: game.Check})
				require.NoError(t, err)
			}
		}
	}
	_, err = h.EndHand()
	require.NoError(t, err)

	names := map[game.PlayerID]string{1: "alice", 2: "bob"}
	stacks := map[game.PlayerID]int{1: 1000, 2: 1000}
	hist := phh.Build(h, names, stacks)

	assert.Equal(t, "NT", hist.Variant)
	assert.Equal(t, h.ID(), hist.HandID)
	assert.Equal(t, []string{"alice", "bob"}, hist.Players)
	assert.Equal(t, []int{0, 0}, hist.Antes)
	assert.Equal(t, []int{5, 10}, hist.BlindsOrStraddles)
	assert.Equal(t, 10, hist.MinBet)
	assert.Equal(t, []int{1000, 1000}, hist.StartingStacks)
	assert.Equal(t, []int{1010, 990}, hist.FinishingStacks)
	assert.Equal(t, []int{10, 0}, hist.Winnings)
	assert.Equal(t, "UTC", hist.TimeZone)

	// Hole deals, a single preflop call, three board deals, six checks,
	// then both players show.
	require.Len(t, hist.Actions, 14)
	assert.Equal(t, "d dh p1 AsAd", hist.Actions[0])
	assert.Equal(t, "d dh p2 KhKd", hist.Actions[1])
	assert.Equal(t, "p1 cc", hist.Actions[2])
	assert.True(t, strings.HasPrefix(hist.Actions[3], "d db "), "flop deal, got %q", hist.Actions[3])
	assert.Len(t, hist.Actions[3], len("d db ")+6)
	assert.Equal(t, "p2 cc", hist.Actions[4])
	assert.Equal(t, "p1 cc", hist.Actions[5])
	assert.True(t, strings.HasPrefix(hist.Actions[6], "d db "), "turn deal")
	assert.True(t, strings.HasPrefix(hist.Actions[9], "d db "), "river deal")
	assert.Equal(t, "p1 sm AsAd", hist.Actions[12])
	assert.Equal(t, "p2 sm KhKd", hist.Actions[13])
}

func TestBuildFoldedHandOmitsBoardAndShowdown(t *testing.T) {
	h := newHeadsUpHand(t)

	_, _, err := h.Apply(1, game.Action{Type: game.Fold})
	require.NoError(t, err)
	_, err = h.EndHand()
	require.NoError(t, err)

	hist := phh.Build(h, map[game.PlayerID]string{1: "alice", 2: "bob"}, map[game.PlayerID]int{1: 500, 2: 500})

	require.Len(t, hist.Actions, 3)
	assert.Equal(t, "p1 f", hist.Actions[2])
	assert.Equal(t, []int{495, 505}, hist.FinishingStacks)
	assert.Equal(t, []int{0, 5}, hist.Winnings)
}

func TestBuildRaiseRecordsStreetTotal(t *testing.T) {
	h := newHeadsUpHand(t)

	// Button raises 20 on top of the 10 to call: street total 30.
	_, _, err := h.Apply(1, game.Action{Type: game.Raise, Amount: 20})
	require.NoError(t, err)
	_, _, err = h.Apply(2, game.Action{Type: game.Fold})
	require.NoError(t, err)
	_, err = h.EndHand()
	require.NoError(t, err)

	hist := phh.Build(h, map[game.PlayerID]string{1: "alice", 2: "bob"}, nil)
	require.Len(t, hist.Actions, 4)
	assert.Equal(t, "p1 cbr 30", hist.Actions[2])
	assert.Equal(t, "p2 f", hist.Actions[3])
	assert.Nil(t, hist.StartingStacks)
}

func TestEncodeGolden(t *testing.T) {
	hist := &phh.HandHistory{
		Variant:           "NT",
		Antes:             []int{0, 0},
		BlindsOrStraddles: []int{5, 10},
		MinBet:            10,
		StartingStacks:    []int{1000, 1000},
		FinishingStacks:   []int{1010, 990},
		Winnings:          []int{10, 0},
		Actions:           []string{"d dh p1 AsAd", "d dh p2 KhKd", "p1 cc"},
		Players:           []string{"alice", "bob"},
		HandID:            "0198f6f2-0000-7000-8000-000000000000",
		Time:              "15:22:00",
		TimeZone:          "UTC",
		Day:               14,
		Month:             11,
		Year:              2025,
	}

	var buf bytes.Buffer
	require.NoError(t, phh.Encode(&buf, hist))

	want := "" +
		"variant = \"NT\"\n" +
		"antes = [0, 0]\n" +
		"blinds_or_straddles = [5, 10]\n" +
		"min_bet = 10\n" +
		"starting_stacks = [1000, 1000]\n" +
		"finishing_stacks = [1010, 990]\n" +
		"winnings = [10, 0]\n" +
		"actions = [\"d dh p1 AsAd\", \"d dh p2 KhKd\", \"p1 cc\"]\n" +
		"players = [\"alice\", \"bob\"]\n" +
		"hand = \"0198f6f2-0000-7000-8000-000000000000\"\n" +
		"time = \"15:22:00\"\n" +
		"time_zone = \"UTC\"\n" +
		"day = 14\n" +
		"month = 11\n" +
		"year = 2025\n"
	assert.Equal(t, want, buf.String())
}
