// Package phh renders completed hands in the Poker Hand History file
// format, a TOML-based interchange format readable by pokerkit and
// similar analysis tools.
package phh

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// HandHistory is one hand in PHH form. Player indices are positional:
// p1 is the first entry of Players, the small blind the first entry of
// BlindsOrStraddles.
type HandHistory struct {
	Variant           string   `toml:"variant"`
	Antes             []int    `toml:"antes"`
	BlindsOrStraddles []int    `toml:"blinds_or_straddles"`
	MinBet            int      `toml:"min_bet"`
	StartingStacks    []int    `toml:"starting_stacks"`
	FinishingStacks   []int    `toml:"finishing_stacks,omitempty"`
	Winnings          []int    `toml:"winnings,omitempty"`
	Actions           []string `toml:"actions"`
	Players           []string `toml:"players,omitempty"`
	HandID            string   `toml:"hand"`
	Time              string   `toml:"time,omitempty"`
	TimeZone          string   `toml:"time_zone,omitempty"`
	Day               int      `toml:"day,omitempty"`
	Month             int      `toml:"month,omitempty"`
	Year              int      `toml:"year,omitempty"`
}

// Encode writes the hand history as PHH TOML.
func Encode(w io.Writer, hist *HandHistory) error {
	if hist == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hist)
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(hist *HandHistory) ([]byte, error) {
	var buf strings.Builder
	if err := Encode(&buf, hist); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
