// Package idgen generates prefixed, time-sortable identifiers such as "imp_0Tb3xQ..." for
// imports and "stg_..." for staged previews.
package idgen

import (
	"crypto/rand"
	"strings"
	"time"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Id prefixes
const (
	PrefixImport = "imp"
	PrefixStaged = "stg"
)

const defaultRandomLength = 18

// Generator produces ids of the form <prefix>_<6-char base62 seconds><random base62>.
// Ids from the same second sort together; within a second the order is random.
type Generator struct {
	now          func() time.Time
	randomLength int
}

// New returns a generator on the wall clock
func New() *Generator {
	return &Generator{now: time.Now, randomLength: defaultRandomLength}
}

// NewWithClock returns a generator whose timestamp part comes from now
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now, randomLength: defaultRandomLength}
}

// NewID returns a fresh id with the given prefix
func (g *Generator) NewID(prefix string) string {
	return prefix + "_" + EncodeTimestamp(g.now().Unix()) + randomBase62(g.randomLength)
}

// EncodeTimestamp encodes unix seconds as a fixed 6-character base62 string that sorts
// lexicographically in time order
func EncodeTimestamp(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	out := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		out[i] = base62Alphabet[seconds%62]
		seconds /= 62
	}
	return string(out)
}

// randomBase62 draws 6 bits at a time and rejects values >= 62 for a uniform alphabet
func randomBase62(length int) string {
	var sb strings.Builder
	sb.Grow(length)

	buf := make([]byte, length+8)
	for sb.Len() < length {
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: failed to read random bytes: " + err.Error())
		}
		for _, b := range buf {
			v := b & 0x3f
			if v < 62 {
				sb.WriteByte(base62Alphabet[v])
				if sb.Len() == length {
					break
				}
			}
		}
	}
	return sb.String()
}
