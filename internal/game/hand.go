package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroom/dealerd/internal/deck"
	"github.com/cardroom/dealerd/internal/evaluator"
)

// Hand state errors. These indicate an illegal transition attempted by
// the caller, not a misbehaving client.
var (
	ErrHandStarted      = errors.New("hand already started")
	ErrHandNotStarted   = errors.New("hand not started")
	ErrRoundNotComplete = errors.New("round cannot end while players still owe an action")
	ErrNoMoreRounds     = errors.New("no betting round after the river")
	ErrTooFewPlayers    = errors.New("at least two players required")
	ErrNotActive        = errors.New("player is not active in the hand")
)

// DefaultBlind is the big-blind amount when none is configured.
const DefaultBlind = 10

// RoundArchive is the frozen snapshot of a finished betting round.
type RoundArchive struct {
	Round    Round
	Pot      int
	Bets     map[PlayerID]int
	Actions  map[PlayerID]Action
	Sequence []ActionRecord
	SidePots []Pot
}

// Snapshot is the read-only view of a hand broadcast to clients.
type Snapshot struct {
	RoundNum       int
	Round          string
	CommunityCards []string
	Pot            int
	CurrentPlayers []PlayerID
	CurrentBet     int
	PlayerBets     map[PlayerID]int
	PlayerActions  map[PlayerID]string
	MinRaise       int
	MaxRaise       int
	SidePots       []Pot
}

// Hand composes four betting rounds into a single deal: hole cards,
// board, blinds, and the score distribution at showdown. It is owned and
// mutated by a single driver; it performs no locking of its own.
type Hand struct {
	logger *log.Logger
	clock  quartz.Clock
	eval   evaluator.Evaluator
	rng    *rand.Rand

	id         string
	blind      int
	postBlinds bool

	players []PlayerID
	active  []PlayerID
	holes   map[PlayerID][]deck.Card
	board   []deck.Card
	deck    *deck.Deck

	button     int
	smallBlind PlayerID
	bigBlind   PlayerID

	roundIndex int
	current    *RoundState
	archives   []RoundArchive
	score      map[PlayerID]int
	started    time.Time
	running    bool
}

// HandOption configures a Hand.
type HandOption func(*Hand)

// WithID sets the hand identifier used in logs.
func WithID(id string) HandOption {
	return func(h *Hand) { h.id = id }
}

// WithBlind sets the big-blind amount; the small blind is half.
func WithBlind(amount int) HandOption {
	return func(h *Hand) { h.blind = amount }
}

// WithDeck injects a prepared deck. Start will not shuffle it, which
// makes dealt cards deterministic for tests.
func WithDeck(d *deck.Deck) HandOption {
	return func(h *Hand) { h.deck = d }
}

// WithClock injects the clock used for action timestamps.
func WithClock(clock quartz.Clock) HandOption {
	return func(h *Hand) { h.clock = clock }
}

// WithBlindPosting controls whether Start posts the blinds server-side.
// When disabled, clients are expected to volunteer them as raises on
// their first turn, as the wire protocol allows.
func WithBlindPosting(enabled bool) HandOption {
	return func(h *Hand) { h.postBlinds = enabled }
}

// NewHand creates an empty hand. Players are added with AddPlayer before
// Start.
func NewHand(logger *log.Logger, eval evaluator.Evaluator, rng *rand.Rand, opts ...HandOption) *Hand {
	h := &Hand{
		logger:     logger.WithPrefix("hand"),
		clock:      quartz.NewReal(),
		eval:       eval,
		rng:        rng,
		blind:      DefaultBlind,
		postBlinds: true,
		holes:      make(map[PlayerID][]deck.Card),
		score:      make(map[PlayerID]int),
		roundIndex: -1,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.id != "" {
		h.logger = h.logger.With("hand_id", h.id)
	}
	return h
}

// AddPlayer appends a player to the ordered seat list. Only valid before
// Start.
func (h *Hand) AddPlayer(p PlayerID) error {
	if h.running {
		return ErrHandStarted
	}
	h.players = append(h.players, p)
	h.active = append(h.active, p)
	return nil
}

// SetDealerButton positions the button as an index into the player list.
// Only valid before Start.
func (h *Hand) SetDealerButton(i int) error {
	if h.running {
		return ErrHandStarted
	}
	if len(h.players) == 0 || i < 0 || i >= len(h.players) {
		return fmt.Errorf("game: dealer button %d out of range", i)
	}
	h.button = i
	return nil
}

// Start shuffles a fresh deck, deals two hole cards to every player,
// assigns the blinds from the button and opens the preflop round.
func (h *Hand) Start() error {
	if h.running {
		return ErrHandStarted
	}
	if len(h.players) < 2 {
		return ErrTooFewPlayers
	}

	if h.deck == nil {
		h.deck = deck.New()
		h.deck.Shuffle(h.rng)
	}

	for _, p := range h.active {
		cards, err := h.deck.Deal(2)
		if err != nil {
			return fmt.Errorf("dealing hole cards: %w", err)
		}
		h.holes[p] = cards
	}

	h.assignBlinds()
	h.roundIndex = 0
	h.board = nil
	h.archives = nil
	h.current = NewRoundState(h.active)
	for _, p := range h.players {
		h.score[p] = 0
	}
	h.started = h.clock.Now()
	h.running = true

	h.logger.Debug("hand started",
		"players", len(h.players), "button", h.button,
		"small_blind", h.smallBlind, "big_blind", h.bigBlind)

	if h.postBlinds {
		if err := h.postBlindBets(); err != nil {
			return fmt.Errorf("posting blinds: %w", err)
		}
	}
	return nil
}

// assignBlinds follows the button: heads-up the button posts the small
// blind, otherwise the two seats after it post small and big.
func (h *Hand) assignBlinds() {
	n := len(h.active)
	if n == 2 {
		h.smallBlind = h.active[h.button%n]
		h.bigBlind = h.active[(h.button+1)%n]
		return
	}
	h.smallBlind = h.active[(h.button+1)%n]
	h.bigBlind = h.active[(h.button+2)%n]
}

// postBlindBets commits the forced bets through the normal raise path so
// they appear in the round history like any other aggression.
func (h *Hand) postBlindBets() error {
	if _, _, err := h.Apply(h.smallBlind, Action{Type: Raise, Amount: h.blind / 2}); err != nil {
		return err
	}
	if _, _, err := h.Apply(h.bigBlind, Action{Type: Raise, Amount: h.blind}); err != nil {
		return err
	}
	return nil
}

// Apply validates and applies a player action to the current round.
//
// Players who went all-in in a previous round are carried over: any
// action received for them is replaced by a zero-amount all-in before
// applying, and once carried it becomes a no-op, so their state
// propagates without protocol errors.
//
// It returns the action actually applied (after any substitution) and
// the chips committed.
func (h *Hand) Apply(player PlayerID, action Action) (Action, int, error) {
	if !h.running {
		return action, 0, ErrHandNotStarted
	}
	if !h.isActive(player) {
		return action, 0, fmt.Errorf("player %d: %w", player, ErrNotActive)
	}

	if h.carriedAllIn(player) {
		action = Action{Type: AllIn, Amount: 0}
		if !h.current.NeedsAction(player) {
			return action, 0, nil
		}
	}

	committed, err := h.current.Apply(player, action)
	if err != nil {
		return action, 0, err
	}

	if action.Type == Fold {
		h.removeActive(player)
	}

	h.record(player, action.Type, committed)
	return action, committed, nil
}

// carriedAllIn reports whether the player's recorded action in the
// previous round was an all-in.
func (h *Hand) carriedAllIn(player PlayerID) bool {
	if h.roundIndex <= 0 || len(h.archives) == 0 {
		return false
	}
	prev := h.archives[len(h.archives)-1]
	a, ok := prev.Actions[player]
	return ok && a.Type == AllIn
}

// record appends the action to the round history with a timestamp
// relative to hand start and the pot structure it produced, including
// the hand-cumulative view.
func (h *Hand) record(player PlayerID, action ActionType, committed int) {
	h.current.Record(ActionRecord{
		Player:     player,
		Action:     action,
		Amount:     committed,
		ElapsedMS:  h.clock.Now().Sub(h.started).Milliseconds(),
		Pots:       h.current.SidePots(),
		Cumulative: h.cumulativePots(),
	})
}

// cumulativePots derives the pot structure for the whole hand so far:
// archived rounds' contributions plus the current round's.
func (h *Hand) cumulativePots() []Pot {
	return ComputePots(h.totalContributions(), h.foldedSet())
}

func (h *Hand) totalContributions() map[PlayerID]int {
	totals := make(map[PlayerID]int, len(h.players))
	for _, p := range h.players {
		totals[p] = 0
	}
	for _, arc := range h.archives {
		for p, c := range arc.Bets {
			totals[p] += c
		}
	}
	if h.current != nil {
		for p, c := range h.current.Contributions() {
			totals[p] += c
		}
	}
	return totals
}

func (h *Hand) foldedSet() map[PlayerID]bool {
	folded := make(map[PlayerID]bool)
	for _, p := range h.players {
		if !h.isActive(p) {
			folded[p] = true
		}
	}
	return folded
}

// EndRound archives the current round. The round must be complete.
func (h *Hand) EndRound() error {
	if !h.running {
		return ErrHandNotStarted
	}
	if !h.current.IsComplete() {
		return ErrRoundNotComplete
	}
	h.archive()
	return nil
}

func (h *Hand) archive() {
	if len(h.archives) == h.roundIndex+1 {
		return // this round is already archived
	}
	h.archives = append(h.archives, RoundArchive{
		Round:    Round(h.roundIndex),
		Pot:      h.current.PotTotal(),
		Bets:     h.current.Contributions(),
		Actions:  h.current.Actions(),
		Sequence: h.current.History(),
		SidePots: h.current.SidePots(),
	})
}

// StartRound advances to the next betting round: burn one card, deal the
// flop or a single street card, and open a fresh round over the still
// active players. Players all-in from the previous round are resolved
// immediately so the session never solicits them.
func (h *Hand) StartRound() error {
	if !h.running {
		return ErrHandNotStarted
	}
	if !h.current.IsComplete() {
		return ErrRoundNotComplete
	}
	if h.roundIndex >= NumRounds-1 {
		return ErrNoMoreRounds
	}
	if len(h.active) < 2 {
		return ErrTooFewPlayers
	}

	h.roundIndex++
	if _, err := h.deck.Deal(1); err != nil { // burn
		return fmt.Errorf("burning card: %w", err)
	}
	dealCount := 1
	if Round(h.roundIndex) == Flop {
		dealCount = 3
	}
	cards, err := h.deck.Deal(dealCount)
	if err != nil {
		return fmt.Errorf("dealing board: %w", err)
	}
	h.board = append(h.board, cards...)
	h.current = NewRoundState(h.active)

	h.logger.Debug("round started",
		"round", Round(h.roundIndex).String(), "board", deck.Strings(h.board))

	// All-in carry-over: resolve without soliciting.
	for _, p := range h.active {
		if h.carriedAllIn(p) {
			if _, _, err := h.Apply(p, Action{Type: AllIn, Amount: 0}); err != nil {
				return fmt.Errorf("propagating all-in for player %d: %w", p, err)
			}
		}
	}
	return nil
}

// EndHand settles the hand: derive pots from cumulative contributions,
// rank the remaining hands, award each pot to the best eligible hand and
// finalise the zero-sum score map.
func (h *Hand) EndHand() (map[PlayerID]int, error) {
	if !h.running {
		return nil, ErrHandNotStarted
	}

	// The current round may be unfinished when the hand terminated early
	// (everyone else folded); its bets still count.
	h.archive()
	h.current = nil
	h.running = false

	totals := h.totalContributions()
	pots := ComputePots(totals, h.foldedSet())

	ranks := make(map[PlayerID]int, len(h.active))
	if len(h.active) >= 2 {
		for _, p := range h.active {
			ranks[p] = h.eval.Rank(append(append([]deck.Card{}, h.holes[p]...), h.board...))
		}
	}

	for _, p := range h.players {
		h.score[p] = 0
	}

	for _, pot := range pots {
		if pot.Amount == 0 || len(pot.Eligible) == 0 {
			continue
		}
		winners := h.potWinners(pot, ranks)
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for i, w := range winners {
			h.score[w] += share
			if i == 0 {
				h.score[w] += remainder
			}
		}
	}

	for p, contributed := range totals {
		h.score[p] -= contributed
	}

	if total := h.scoreTotal(); total != 0 {
		return nil, fmt.Errorf("game: score map sums to %d, want 0", total)
	}

	h.logger.Debug("hand settled", "scores", h.score, "board", deck.Strings(h.board))
	return h.Scores(), nil
}

// potWinners returns the best-ranked eligible players for a pot, in
// player-list order so remainder chips land deterministically.
func (h *Hand) potWinners(pot Pot, ranks map[PlayerID]int) []PlayerID {
	eligible := make(map[PlayerID]bool, len(pot.Eligible))
	for _, p := range pot.Eligible {
		if h.isActive(p) {
			eligible[p] = true
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	if len(h.active) < 2 {
		// Uncontested: the last player standing takes everything.
		return []PlayerID{h.active[0]}
	}

	best := 0
	first := true
	for p := range eligible {
		if first || ranks[p] > best {
			best = ranks[p]
			first = false
		}
	}
	winners := make([]PlayerID, 0, len(eligible))
	for _, p := range h.players {
		if eligible[p] && ranks[p] == best {
			winners = append(winners, p)
		}
	}
	return winners
}

func (h *Hand) scoreTotal() int {
	total := 0
	for _, s := range h.score {
		total += s
	}
	return total
}

// Over reports whether the hand can accept no further betting: a single
// player remains, or the river round is complete.
func (h *Hand) Over() bool {
	if !h.running {
		return true
	}
	if len(h.active) <= 1 {
		return true
	}
	return h.roundIndex == NumRounds-1 && h.current.IsComplete()
}

// AllRemainingAllIn reports whether every still-active player is all-in,
// in which case the remaining streets are dealt without polling.
func (h *Hand) AllRemainingAllIn() bool {
	if !h.running || len(h.active) < 2 {
		return false
	}
	for _, p := range h.active {
		if !h.current.IsAllIn(p) && !h.carriedAllIn(p) {
			return false
		}
	}
	return true
}

// PositionalOrder returns the full seat list rotated to the betting
// start position: after the button, except heads-up preflop where the
// button acts first.
func (h *Hand) PositionalOrder() []PlayerID {
	n := len(h.players)
	start := (h.button + 1) % n
	if n == 2 && Round(h.roundIndex) == Preflop {
		start = h.button % n
	}
	order := make([]PlayerID, 0, n)
	for i := 0; i < n; i++ {
		order = append(order, h.players[(start+i)%n])
	}
	return order
}

// Snapshot builds the read-only broadcast view of the current round.
func (h *Hand) Snapshot() Snapshot {
	snap := Snapshot{
		RoundNum:       h.roundIndex,
		Round:          Round(h.roundIndex).String(),
		CommunityCards: deck.Strings(h.board),
		PlayerBets:     map[PlayerID]int{},
		PlayerActions:  map[PlayerID]string{},
	}
	if h.current == nil {
		return snap
	}
	snap.Pot = h.current.PotTotal()
	snap.CurrentPlayers = h.current.CurrentActors()
	snap.CurrentBet = h.current.HighBet()
	snap.PlayerBets = h.current.Contributions()
	for p, a := range h.current.Actions() {
		snap.PlayerActions[p] = a.Type.String()
	}
	// Advisory only; mirrors what the protocol has always emitted.
	snap.MinRaise = snap.CurrentBet
	snap.MaxRaise = snap.CurrentBet * 2
	snap.SidePots = h.current.SidePots()
	return snap
}

// Accessors used by the session layer and the hand log.

// ID returns the hand identifier.
func (h *Hand) ID() string { return h.id }

// Blind returns the big-blind amount.
func (h *Hand) Blind() int { return h.blind }

// SmallBlindPlayer returns the small-blind seat for this hand.
func (h *Hand) SmallBlindPlayer() PlayerID { return h.smallBlind }

// BigBlindPlayer returns the big-blind seat for this hand.
func (h *Hand) BigBlindPlayer() PlayerID { return h.bigBlind }

// Players returns the ordered seat list.
func (h *Hand) Players() []PlayerID {
	return append([]PlayerID(nil), h.players...)
}

// Active returns the players who have not folded.
func (h *Hand) Active() []PlayerID {
	return append([]PlayerID(nil), h.active...)
}

// HoleCards returns the two private cards dealt to the player.
func (h *Hand) HoleCards(p PlayerID) []deck.Card {
	return append([]deck.Card(nil), h.holes[p]...)
}

// Board returns the community cards dealt so far.
func (h *Hand) Board() []deck.Card {
	return append([]deck.Card(nil), h.board...)
}

// RoundIndex returns the current round ordinal (0..3).
func (h *Hand) RoundIndex() int { return h.roundIndex }

// CurrentRound returns the round state being bet, or nil once the hand
// has been settled.
func (h *Hand) CurrentRound() *RoundState { return h.current }

// Archives returns the frozen per-round history.
func (h *Hand) Archives() []RoundArchive {
	return append([]RoundArchive(nil), h.archives...)
}

// Scores returns a copy of the final score map.
func (h *Hand) Scores() map[PlayerID]int {
	out := make(map[PlayerID]int, len(h.score))
	for p, s := range h.score {
		out[p] = s
	}
	return out
}

// StartedAt returns the hand start time.
func (h *Hand) StartedAt() time.Time { return h.started }

func (h *Hand) isActive(p PlayerID) bool {
	for _, q := range h.active {
		if q == p {
			return true
		}
	}
	return false
}

func (h *Hand) removeActive(p PlayerID) {
	for i, q := range h.active {
		if q == p {
			h.active = append(h.active[:i], h.active[i+1:]...)
			return
		}
	}
}

// SortedPlayers returns player ids in ascending order, independent of
// seating; used where deterministic output matters more than position.
func SortedPlayers(ids []PlayerID) []PlayerID {
	out := append([]PlayerID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
