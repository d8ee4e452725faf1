package requisitions

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// NumberGenerator produces MR-YYMMDD-NNN numbers. NNN is random, so numbers
// can collide; Create retries on the unique index.
type NumberGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	loc *time.Location
}

func NewNumberGenerator(loc *time.Location, seed int64) *NumberGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &NumberGenerator{rnd: rand.New(rand.NewSource(seed)), loc: loc}
}

func (g *NumberGenerator) Next(now time.Time) string {
	g.mu.Lock()
	n := g.rnd.Intn(1000)
	g.mu.Unlock()
	return fmt.Sprintf("MR-%s-%03d", now.In(g.loc).Format("060102"), n)
}
