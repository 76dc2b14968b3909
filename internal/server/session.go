package server

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cardroom/dealerd/internal/deck"
	"github.com/cardroom/dealerd/internal/evaluator"
	"github.com/cardroom/dealerd/internal/game"
	"github.com/cardroom/dealerd/internal/gameid"
	"github.com/cardroom/dealerd/internal/phh"
	"github.com/cardroom/dealerd/internal/protocol"
	"github.com/cardroom/dealerd/internal/randutil"
	"github.com/cardroom/dealerd/internal/statistics"
)

// ErrSessionFull is returned to transports that arrive after the table
// has filled or while a hand is in progress.
var ErrSessionFull = errors.New("server: session full or in progress")

// Session coordinates one table: it seats exactly N clients, then runs
// the configured number of hands with a single driver goroutine. Only
// Join touches shared state from other goroutines; the hand state
// machine itself is never mutated concurrently.
type Session struct {
	settings SessionSettings
	logger   *log.Logger
	clock    quartz.Clock
	eval     evaluator.Evaluator
	rng      *rand.Rand
	metrics  *Metrics

	logWriter     *HandLogWriter
	historyWriter *HistoryWriter
	status        *StatusFile
	stats         *statistics.Tracker

	mu      sync.Mutex
	clients map[game.PlayerID]*Client
	order   []game.PlayerID
	nextID  game.PlayerID
	playing bool
	ready   chan struct{}

	button   int
	bankroll map[game.PlayerID]int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock injects the clock driving turn timeouts and hand intervals.
func WithClock(clock quartz.Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// WithEvaluator overrides the showdown evaluator.
func WithEvaluator(eval evaluator.Evaluator) SessionOption {
	return func(s *Session) { s.eval = eval }
}

// WithRNG injects the deck-shuffling random source.
func WithRNG(rng *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = rng }
}

// WithMetrics shares an externally registered metrics set.
func WithMetrics(m *Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithStatusFile enables the lifecycle sentinel.
func WithStatusFile(sf *StatusFile) SessionOption {
	return func(s *Session) { s.status = sf }
}

// WithHandLogWriter enables per-hand log persistence.
func WithHandLogWriter(w *HandLogWriter) SessionOption {
	return func(s *Session) { s.logWriter = w }
}

// WithHistoryWriter enables PHH hand history export.
func WithHistoryWriter(w *HistoryWriter) SessionOption {
	return func(s *Session) { s.historyWriter = w }
}

// NewSession creates a session for the given settings.
func NewSession(settings SessionSettings, logger *log.Logger, opts ...SessionOption) *Session {
	s := &Session{
		settings: settings,
		logger:   logger.WithPrefix("session"),
		clock:    quartz.NewReal(),
		eval:     evaluator.New(),
		rng:      randutil.New(time.Now().UnixNano()),
		clients:  make(map[game.PlayerID]*Client),
		nextID:   1,
		ready:    make(chan struct{}),
		bankroll: make(map[game.PlayerID]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	s.stats = statistics.NewTracker(settings.Blind)
	return s
}

// Stats exposes the per-player session aggregates.
func (s *Session) Stats() *statistics.Tracker { return s.stats }

// Join seats a new transport. Arrivals past the required player count,
// or while hands are being played, are refused with a Disconnect record
// and a closed socket.
func (s *Session) Join(transport Transport) (game.PlayerID, error) {
	s.mu.Lock()
	if s.playing || len(s.clients) >= s.settings.Players {
		s.mu.Unlock()
		if line, err := protocol.Encode(protocol.TypeDisconnect, "table full"); err == nil {
			_ = transport.WriteLine(line)
		}
		_ = transport.Close()
		return 0, ErrSessionFull
	}

	id := s.nextID
	s.nextID++
	client := NewClient(id, fmt.Sprintf("player-%d", id), transport, s.logger)
	s.clients[id] = client
	s.order = append(s.order, id)
	s.bankroll[id] = s.settings.StartChips
	seated := len(s.clients)
	if seated == s.settings.Players {
		close(s.ready)
	}
	s.mu.Unlock()

	client.Start()
	_ = client.Send(protocol.TypeConnect, int(id))
	_ = client.Send(protocol.TypeText, fmt.Sprintf("Welcome to the game! Your ID is %d", id))

	s.logger.Info("player joined",
		"player", id, "remote", transport.RemoteAddr(),
		"seated", seated, "required", s.settings.Players)
	return id, nil
}

// Accept seats TCP connections until ctx is cancelled. Late arrivals are
// still accepted so they can be refused with a reason.
func (s *Session) Accept(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		if _, err := s.Join(NewTCPTransport(conn)); err != nil {
			s.logger.Debug("connection refused", "remote", conn.RemoteAddr(), "error", err)
		}
	}
}

// Play waits for the table to fill and then drives the session: hands
// are played back to back, the button rotating, until the configured
// hand count is reached, quorum is lost, or ctx is cancelled.
func (s *Session) Play(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()

	if s.status != nil {
		if err := s.status.Running(); err != nil {
			return fmt.Errorf("writing status file: %w", err)
		}
	}

	totals := make(map[game.PlayerID]int)
	for _, p := range s.seatOrder() {
		totals[p] = 0
	}

	var playErr error
	for seq := 1; seq <= s.settings.Hands; seq++ {
		if connected := s.connectedCount(); connected < s.settings.Players {
			s.logger.Warn("quorum lost, stopping session",
				"connected", connected, "required", s.settings.Players)
			break
		}

		scores, err := s.playHand(ctx, seq)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				s.logger.Error("hand failed", "hand", seq, "error", err)
				playErr = err
			}
			break
		}
		for p, delta := range scores {
			totals[p] += delta
		}
		s.button = (s.button + 1) % len(s.seatOrder())

		if seq < s.settings.Hands {
			if err := s.sleep(ctx, s.settings.HandInterval()); err != nil {
				break
			}
		}
	}

	s.shutdown(totals)
	return playErr
}

// shutdown notifies every client, closes sockets, and flips the status
// sentinel to DONE.
func (s *Session) shutdown(totals map[game.PlayerID]int) {
	for _, client := range s.connectedClients() {
		_ = client.Send(protocol.TypeDisconnect, "session over")
	}
	// Give the write pumps a moment to flush the farewell.
	_ = s.sleep(context.Background(), 50*time.Millisecond)
	for _, client := range s.connectedClients() {
		_ = client.Close()
	}
	if s.status != nil {
		if err := s.status.Done(totals); err != nil {
			s.logger.Error("writing final status", "error", err)
		}
	}
	for _, line := range s.stats.Summary() {
		s.logger.Info("player results",
			"player", line.Player, "hands", line.Stats.Hands,
			"wins", line.Stats.Wins, "showdowns", line.Stats.Showdowns,
			"net_chips", line.Stats.NetChips, "bb_per_hand", line.Stats.MeanBB())
	}
	s.logger.Info("session over", "scores", totals)
}

// playHand runs one complete hand and returns its zero-sum score map.
func (s *Session) playHand(ctx context.Context, seq int) (map[game.PlayerID]int, error) {
	participants := s.connectedClients()
	if len(participants) < 2 {
		return nil, errors.New("server: not enough connected players")
	}

	h := game.NewHand(s.logger, s.eval, s.rng,
		game.WithID(gameid.Generate()),
		game.WithBlind(s.settings.Blind),
		game.WithBlindPosting(s.settings.PostBlindsEnabled()),
		game.WithClock(s.clock),
	)
	for _, client := range participants {
		if err := h.AddPlayer(client.ID); err != nil {
			return nil, err
		}
	}
	if err := h.SetDealerButton(s.button % len(participants)); err != nil {
		return nil, err
	}

	startingMoney := s.bankrollSnapshot()

	if err := h.Start(); err != nil {
		return nil, fmt.Errorf("starting hand: %w", err)
	}
	s.logger.Info("hand started", "hand", seq, "id", h.ID(), "players", len(participants))

	s.broadcast(protocol.TypeText, "Game starting!")
	for _, client := range participants {
		_ = client.Send(protocol.TypeGameStart, protocol.GameStart{
			Text:         "Game initiated!",
			HoleCards:    deck.Strings(h.HoleCards(client.ID)),
			Blind:        h.Blind(),
			IsSmallBlind: h.SmallBlindPlayer() == client.ID,
			IsBigBlind:   h.BigBlindPlayer() == client.ID,
		})
	}
	s.broadcastState(h)
	s.broadcast(protocol.TypeRoundStart, game.Round(h.RoundIndex()).String())

	for !h.Over() {
		// Once everyone left in the hand is all-in the remaining streets
		// run out without polling anyone.
		if !h.AllRemainingAllIn() {
			for _, p := range h.PositionalOrder() {
				if h.Over() {
					break
				}
				rs := h.CurrentRound()
				if rs == nil || !rs.NeedsAction(p) {
					continue
				}
				if err := s.solicit(ctx, h, p); err != nil {
					return nil, err
				}
			}
		}

		if rs := h.CurrentRound(); rs != nil && rs.IsComplete() && !h.Over() {
			s.broadcast(protocol.TypeRoundEnd, game.Round(h.RoundIndex()).String())
			if err := h.EndRound(); err != nil {
				return nil, fmt.Errorf("ending round: %w", err)
			}
			if err := h.StartRound(); err != nil {
				return nil, fmt.Errorf("starting round: %w", err)
			}
			s.broadcast(protocol.TypeRoundStart, game.Round(h.RoundIndex()).String())
			s.broadcastState(h)
		}
	}

	if rs := h.CurrentRound(); rs != nil && rs.IsComplete() {
		s.broadcast(protocol.TypeRoundEnd, game.Round(h.RoundIndex()).String())
	}

	scores, err := h.EndHand()
	if err != nil {
		return nil, fmt.Errorf("settling hand: %w", err)
	}

	s.broadcast(protocol.TypeText, "Game over!")
	for _, client := range participants {
		_ = client.Send(protocol.TypeGameEnd, protocol.GameEnd{Score: scores[client.ID]})
	}
	s.metrics.HandsPlayed.Inc()

	money := s.settleBankroll(startingMoney, scores)
	s.stats.Record(h, scores)

	names := make(map[game.PlayerID]string, len(participants))
	for _, client := range participants {
		names[client.ID] = client.Name
	}
	if s.logWriter != nil {
		if _, err := s.logWriter.Write(BuildHandLog(h, names, money), seq); err != nil {
			s.logger.Error("persisting hand log", "hand", seq, "error", err)
		}
	}
	if s.historyWriter != nil {
		if _, err := s.historyWriter.Write(phh.Build(h, names, startingMoney), seq); err != nil {
			s.logger.Error("persisting hand history", "hand", seq, "error", err)
		}
	}

	s.logger.Info("hand finished", "hand", seq, "id", h.ID(), "scores", scores)
	return scores, nil
}

// solicit requests an action from one player and blocks until it is
// resolved: applied, substituted by a timeout fold, or folded because
// the client is gone. Validation failures are answered with a Message
// and re-solicited without advancing the turn; the deadline keeps
// running across retries.
func (s *Session) solicit(ctx context.Context, h *game.Hand, p game.PlayerID) error {
	client := s.client(p)
	if client == nil || client.Closed() {
		s.serverFold(h, p, "player disconnected")
		return nil
	}

	client.Drain()
	timeout := s.settings.TurnTimeout()
	deadline := s.clock.Now().Add(timeout)
	timer := s.clock.NewTimer(timeout)
	defer timer.Stop()

	request := func() {
		left := deadline.Sub(s.clock.Now()).Seconds()
		if left < 0 {
			left = 0
		}
		_ = client.Send(protocol.TypeRequestAction, protocol.RequestAction{
			PlayerID: int(p),
			TimeLeft: left,
		})
	}
	reject := func(reason string) {
		s.metrics.ProtocolErrors.Inc()
		_ = client.Send(protocol.TypeText, reason)
		request()
	}
	request()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			s.metrics.TurnTimeouts.Inc()
			_ = client.Send(protocol.TypeText, "Timeout!")
			s.serverFold(h, p, "turn timeout")
			return nil

		case ev, ok := <-client.Inbound():
			if !ok {
				s.metrics.Disconnects.Inc()
				s.serverFold(h, p, "player disconnected")
				return nil
			}
			if ev.Err != nil {
				reject(fmt.Sprintf("Invalid message: %v", ev.Err))
				continue
			}
			if ev.Env.Type != protocol.TypePlayerAction {
				reject(fmt.Sprintf("Unexpected message type %s", ev.Env.Type))
				continue
			}
			var pa protocol.PlayerAction
			if err := ev.Env.Payload(&pa); err != nil {
				reject(fmt.Sprintf("Invalid action payload: %v", err))
				continue
			}
			if pa.PlayerID != int(p) {
				reject(fmt.Sprintf("Action from wrong player %d", pa.PlayerID))
				continue
			}
			actionType, err := game.ActionTypeFromCode(pa.Action)
			if err != nil {
				reject(fmt.Sprintf("Invalid action: %v", err))
				continue
			}

			applied, _, err := h.Apply(p, game.Action{Type: actionType, Amount: pa.Amount})
			if err != nil {
				reject(fmt.Sprintf("Invalid action: %v", err))
				continue
			}
			s.metrics.ActionsApplied.WithLabelValues(applied.Type.String()).Inc()
			s.broadcastState(h)
			return nil
		}
	}
}

// serverFold applies a fold on the player's behalf when they time out or
// drop, keeping the turn order moving.
func (s *Session) serverFold(h *game.Hand, p game.PlayerID, reason string) {
	s.logger.Info("folding for player", "player", p, "reason", reason)
	if _, _, err := h.Apply(p, game.Action{Type: game.Fold}); err != nil {
		s.logger.Error("applying server fold", "player", p, "error", err)
		return
	}
	s.metrics.ActionsApplied.WithLabelValues(game.Fold.String()).Inc()
	s.broadcastState(h)
}

// settleBankroll applies the hand's score map to the running bankroll
// and builds the money accounting for the hand log.
func (s *Session) settleBankroll(starting map[game.PlayerID]int, scores map[game.PlayerID]int) *MoneyLog {
	money := &MoneyLog{
		InitialAmount: s.settings.StartChips,
		StartingMoney: make(map[string]int),
		StartingDelta: make(map[string]int),
		FinalMoney:    make(map[string]int),
		FinalDelta:    make(map[string]int),
		GameScores:    make(map[string]int),
		ThisGameDelta: make(map[string]int),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for p, delta := range scores {
		key := logKey(p)
		start := starting[p]
		final := start + delta
		s.bankroll[p] = final

		money.StartingMoney[key] = start
		money.StartingDelta[key] = start - s.settings.StartChips
		money.FinalMoney[key] = final
		money.FinalDelta[key] = final - s.settings.StartChips
		money.GameScores[key] = delta
		money.ThisGameDelta[key] = delta
	}
	return money
}

// broadcastState sends the current table snapshot to every connected
// client. This runs after every applied action, so each client sees the
// effect before the next player is solicited.
func (s *Session) broadcastState(h *game.Hand) {
	snap := h.Snapshot()

	state := protocol.GameState{
		RoundNum:       snap.RoundNum,
		Round:          snap.Round,
		CommunityCards: snap.CommunityCards,
		Pot:            snap.Pot,
		CurrentBet:     snap.CurrentBet,
		MinRaise:       snap.MinRaise,
		MaxRaise:       snap.MaxRaise,
		PlayerBets:     make(map[string]int, len(snap.PlayerBets)),
		PlayerActions:  make(map[string]string, len(snap.PlayerActions)),
	}
	state.CurrentPlayer = make([]int, 0, len(snap.CurrentPlayers))
	for _, p := range snap.CurrentPlayers {
		state.CurrentPlayer = append(state.CurrentPlayer, int(p))
	}
	for p, bet := range snap.PlayerBets {
		state.PlayerBets[strconv.Itoa(int(p))] = bet
	}
	for p, name := range snap.PlayerActions {
		state.PlayerActions[strconv.Itoa(int(p))] = name
	}
	state.SidePots = make([]protocol.SidePot, 0, len(snap.SidePots))
	for _, pot := range snap.SidePots {
		eligible := make([]int, 0, len(pot.Eligible))
		for _, p := range pot.Eligible {
			eligible = append(eligible, int(p))
		}
		state.SidePots = append(state.SidePots, protocol.SidePot{
			Amount:          pot.Amount,
			EligiblePlayers: eligible,
		})
	}

	s.broadcast(protocol.TypeGameState, state)
}

// broadcast sends one message to every connected client, best effort. A
// failed send closes that client but never stalls the driver.
func (s *Session) broadcast(t protocol.Type, payload any) {
	for _, client := range s.connectedClients() {
		if err := client.Send(t, payload); err != nil {
			s.logger.Debug("broadcast dropped client", "player", client.ID, "error", err)
		}
	}
}

// sleep waits for the inter-hand interval on the injected clock.
func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) client(p game.PlayerID) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[p]
}

func (s *Session) seatOrder() []game.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]game.PlayerID(nil), s.order...)
}

// connectedClients returns the still-open clients in seat order.
func (s *Session) connectedClients() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Client, 0, len(s.order))
	for _, p := range s.order {
		if c := s.clients[p]; c != nil && !c.Closed() {
			out = append(out, c)
		}
	}
	return out
}

func (s *Session) connectedCount() int {
	return len(s.connectedClients())
}

func (s *Session) bankrollSnapshot() map[game.PlayerID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[game.PlayerID]int, len(s.bankroll))
	for p, m := range s.bankroll {
		out[p] = m
	}
	return out
}
