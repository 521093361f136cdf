// Package reference issues human-readable booking references such as
// BK1718000000000X7Q2Z.
package reference

import (
	"crypto/rand"
	"regexp"
	"strconv"
	"sync"
	"time"
)

const (
	Prefix     = "BK"
	SuffixSize = 5
	alphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var Pattern = regexp.MustCompile(`^BK\d{13}[0-9A-Z]{5}$`)

// Generator is safe for concurrent use. Within one process it never repeats
// a reference; across processes the unique index on bookings is the arbiter.
type Generator struct {
	mu     sync.Mutex
	now    func() time.Time
	lastMs int64
	issued map[string]struct{}
}

func NewGenerator() *Generator {
	return NewGeneratorWithClock(time.Now)
}

func NewGeneratorWithClock(now func() time.Time) *Generator {
	return &Generator{now: now, issued: make(map[string]struct{})}
}

func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms > g.lastMs {
		g.lastMs = ms
		clear(g.issued)
	}
	for {
		suffix := randomSuffix()
		if _, dup := g.issued[suffix]; dup {
			continue
		}
		g.issued[suffix] = struct{}{}
		return Prefix + strconv.FormatInt(g.lastMs, 10) + suffix
	}
}

func Valid(ref string) bool {
	return Pattern.MatchString(ref)
}

// randomSuffix draws uniformly from the alphabet by rejecting bytes that
// would bias the modulo.
func randomSuffix() string {
	const limit = 256 - 256%len(alphabet)
	out := make([]byte, 0, SuffixSize)
	buf := make([]byte, SuffixSize*2)
	for len(out) < SuffixSize {
		rand.Read(buf)
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == SuffixSize {
				break
			}
		}
	}
	return string(out)
}
