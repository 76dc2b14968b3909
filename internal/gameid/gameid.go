// Package gameid generates the identifiers stamped on hands and their
// persisted logs. IDs are UUIDv7 rendered in canonical form, so they
// sort by creation time while staying globally unique.
package gameid

import (
	"crypto/rand"
	"fmt"
	"time"
)

// RandSource supplies the random tail of an ID. Injected in tests to
// make IDs reproducible.
type RandSource interface {
	Intn(n int) int
}

// Generator produces hand identifiers.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil RandSource means crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates an ID with the default crypto/rand source.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a UUIDv7 string: 48-bit millisecond timestamp,
// version and variant bits, and 74 random bits.
func (g *Generator) Generate() string {
	var id [16]byte

	now := time.Now().UnixMilli()
	id[0] = byte(now >> 40)
	id[1] = byte(now >> 32)
	id[2] = byte(now >> 24)
	id[3] = byte(now >> 16)
	id[4] = byte(now >> 8)
	id[5] = byte(now)

	if g.randSource != nil {
		for i := 6; i < 16; i++ {
			id[i] = byte(g.randSource.Intn(256))
		}
	} else {
		if _, err := rand.Read(id[6:]); err != nil {
			panic("gameid: reading random bytes: " + err.Error())
		}
	}

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	return format(id)
}

func format(id [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", id[0:4], id[4:6], id[6:8], id[8:10], id[10:16])
}

// Validate checks that an ID is a canonical lowercase UUID string.
func Validate(id string) error {
	if len(id) != 36 {
		return fmt.Errorf("game ID must be 36 characters, got %d", len(id))
	}
	for i, c := range id {
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return fmt.Errorf("expected '-' at position %d, got %c", i, c)
			}
		default:
			hex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
			if !hex {
				return fmt.Errorf("invalid character %c at position %d", c, i)
			}
		}
	}
	return nil
}
