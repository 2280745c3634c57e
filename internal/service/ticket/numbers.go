package ticket

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NumberGenerator mints human readable ticket numbers of the form
// PREFIX-YYYYMMDD-NNNNN. Uniqueness is enforced by the store.
type NumberGenerator struct {
	prefix string
	now    func() time.Time
	intn   func(n int) int
}

func NewNumberGenerator(prefix string, now func() time.Time) *NumberGenerator {
	if prefix == "" {
		prefix = "TKT"
	}
	if now == nil {
		now = time.Now
	}
	return &NumberGenerator{prefix: prefix, now: now, intn: rand.IntN}
}

func (g *NumberGenerator) Next() string {
	return fmt.Sprintf("%s-%s-%05d", g.prefix, g.now().UTC().Format("20060102"), g.intn(100000))
}
