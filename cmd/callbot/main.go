// callbot is a minimal scripted client: it connects to a dealer, calls
// whenever chips are owed and checks otherwise. Useful as a smoke-test
// peer and as a reference for the wire protocol from the client side.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/cardroom/dealerd/internal/protocol"
)

var CLI struct {
	Addr     string `short:"a" default:"localhost:4000" help:"Dealer address to connect to"`
	LogLevel string `short:"l" default:"info" help:"Log level"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logger := log.New(os.Stderr).WithPrefix("callbot")
	if CLI.LogLevel == "debug" {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(logger); err != nil {
		logger.Error("bot stopped", "error", err)
		kctx.Exit(1)
	}
}

func run(logger *log.Logger) error {
	conn, err := net.Dial("tcp", CLI.Addr)
	if err != nil {
		return fmt.Errorf("connecting to dealer: %w", err)
	}
	defer conn.Close()
	logger.Info("connected", "addr", CLI.Addr)

	var (
		myID  int
		state protocol.GameState
	)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("reading from dealer: %w", err)
		}
		env, err := protocol.Decode(line)
		if err != nil {
			logger.Warn("skipping malformed line", "error", err)
			continue
		}

		switch env.Type {
		case protocol.TypeConnect:
			if err := env.Payload(&myID); err != nil {
				return err
			}
			logger.Info("assigned id", "player", myID)

		case protocol.TypeGameStart:
			var start protocol.GameStart
			if err := env.Payload(&start); err != nil {
				return err
			}
			logger.Info("hand started", "hole_cards", start.HoleCards,
				"small_blind", start.IsSmallBlind, "big_blind", start.IsBigBlind)

		case protocol.TypeGameState:
			if err := env.Payload(&state); err != nil {
				logger.Warn("bad game state", "error", err)
			}

		case protocol.TypeRequestAction:
			var req protocol.RequestAction
			if err := env.Payload(&req); err != nil || req.PlayerID != myID {
				continue
			}
			action := decide(state, myID)
			logger.Debug("acting", "action", action.Action, "amount", action.Amount)
			reply, err := protocol.Encode(protocol.TypePlayerAction, action)
			if err != nil {
				return err
			}
			if _, err := conn.Write(reply); err != nil {
				return fmt.Errorf("writing action: %w", err)
			}

		case protocol.TypeGameEnd:
			var end protocol.GameEnd
			if err := env.Payload(&end); err == nil {
				logger.Info("hand finished", "score", end.Score)
			}

		case protocol.TypeText:
			var text string
			if err := env.Payload(&text); err == nil {
				logger.Debug("dealer says", "text", text)
			}

		case protocol.TypeDisconnect:
			var reason string
			_ = env.Payload(&reason)
			logger.Info("dealer closed the session", "reason", reason)
			return nil
		}
	}
}

// decide calls when behind the current bet, checks otherwise.
func decide(state protocol.GameState, myID int) protocol.PlayerAction {
	myBet := state.PlayerBets[strconv.Itoa(myID)]
	action := protocol.PlayerAction{PlayerID: myID, Action: protocolCheck}
	if state.CurrentBet > myBet {
		action.Action = protocolCall
	}
	return action
}

// Wire action codes, mirrored here so the bot has no dependency on the
// engine package.
const (
	protocolCheck = 2
	protocolCall  = 3
)
