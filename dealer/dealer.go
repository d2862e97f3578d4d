// dealer/dealer.go
package dealer

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/careerplay/ccm/catalog"
)

// Hand shape constants.
const (
	RoleHandSize    = 10
	SynergyHandSize = 5
)

// ErrInsufficientCatalog is returned when the catalog cannot satisfy the
// minimum distinct-card count for the requested grade band. Rooms stay in
// intermission and retry on a backoff when they see it.
var ErrInsufficientCatalog = errors.New("catalog cannot satisfy the required hand size")

// Hand is one participant's starting cards.
type Hand struct {
	RoleCardIDs     []string
	SynergyCardIDs  []string
	GoldenAvailable bool
}

// Dealer builds starting hands from the read-only catalog. A single dealer is
// shared by all rooms, so the RNG is guarded.
type Dealer struct {
	store *catalog.Store
	mu    sync.Mutex
	rng   *rand.Rand
}

func New(store *catalog.Store, seed int64) *Dealer {
	return &Dealer{
		store: store,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// DealHands draws a role hand of 10 distinct cards per participant (sampled
// without replacement from the grade-eligible catalog), assigns the identical
// universal synergy set to everyone, and grants each participant one golden
// token.
func (d *Dealer) DealHands(gradeBand string, participantIDs []string) (map[string]Hand, error) {
	eligible := d.store.RoleCards(gradeBand)
	if len(eligible) < RoleHandSize {
		return nil, ErrInsufficientCatalog
	}
	universal := d.store.UniversalSynergySet()
	if len(universal) != SynergyHandSize {
		return nil, ErrInsufficientCatalog
	}

	synergyIDs := make([]string, 0, SynergyHandSize)
	for _, c := range universal {
		synergyIDs = append(synergyIDs, c.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	hands := make(map[string]Hand, len(participantIDs))
	for _, pid := range participantIDs {
		picks := d.rng.Perm(len(eligible))[:RoleHandSize]
		roleIDs := make([]string, 0, RoleHandSize)
		for _, i := range picks {
			roleIDs = append(roleIDs, eligible[i].ID)
		}

		synCopy := make([]string, SynergyHandSize)
		copy(synCopy, synergyIDs)

		hands[pid] = Hand{
			RoleCardIDs:     roleIDs,
			SynergyCardIDs:  synCopy,
			GoldenAvailable: true,
		}
	}
	return hands, nil
}
