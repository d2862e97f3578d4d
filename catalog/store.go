// catalog/store.go
package catalog

import "sort"

// Data is the bulk-loaded catalog content handed over by the ingestion side.
// The engine only ever reads it.
type Data struct {
	Roles         []RoleCard
	Synergies     []SynergyCard
	Challenges    []ChallengeCard
	MatrixEntries []MatrixEntry
}

// Store is an immutable, read-only view of the card catalog. It is safe for
// concurrent use from every room. The soft-skills matrix is deliberately not
// part of the store; see Matrix.
type Store struct {
	roles      map[string]RoleCard
	synergies  map[string]SynergyCard
	challenges map[string]ChallengeCard

	roleOrder      []string
	synergyOrder   []string
	challengeOrder []string
}

// NewStore builds a store from loaded card definitions.
func NewStore(roles []RoleCard, synergies []SynergyCard, challenges []ChallengeCard) *Store {
	s := &Store{
		roles:      make(map[string]RoleCard, len(roles)),
		synergies:  make(map[string]SynergyCard, len(synergies)),
		challenges: make(map[string]ChallengeCard, len(challenges)),
	}
	for _, c := range roles {
		if _, dup := s.roles[c.ID]; !dup {
			s.roleOrder = append(s.roleOrder, c.ID)
		}
		s.roles[c.ID] = c
	}
	for _, c := range synergies {
		if _, dup := s.synergies[c.ID]; !dup {
			s.synergyOrder = append(s.synergyOrder, c.ID)
		}
		s.synergies[c.ID] = c
	}
	for _, c := range challenges {
		if _, dup := s.challenges[c.ID]; !dup {
			s.challengeOrder = append(s.challengeOrder, c.ID)
		}
		s.challenges[c.ID] = c
	}
	sort.Strings(s.roleOrder)
	sort.Strings(s.synergyOrder)
	sort.Strings(s.challengeOrder)
	return s
}

// GetRoleCard looks up a role card by ID.
func (s *Store) GetRoleCard(id string) (RoleCard, bool) {
	c, ok := s.roles[id]
	return c, ok
}

// GetSynergyCard looks up a synergy card by ID.
func (s *Store) GetSynergyCard(id string) (SynergyCard, bool) {
	c, ok := s.synergies[id]
	return c, ok
}

// GetChallengeCard looks up a challenge card by ID.
func (s *Store) GetChallengeCard(id string) (ChallengeCard, bool) {
	c, ok := s.challenges[id]
	return c, ok
}

// RoleCards returns the role cards eligible for a grade band, in stable ID
// order. An empty band means no filtering.
func (s *Store) RoleCards(gradeBand string) []RoleCard {
	out := make([]RoleCard, 0, len(s.roleOrder))
	for _, id := range s.roleOrder {
		c := s.roles[id]
		if gradeBand == "" || c.GradeBand == "" || c.GradeBand == gradeBand {
			out = append(out, c)
		}
	}
	return out
}

// UniversalSynergySet returns the fixed synergy set every participant in a
// game shares, in stable ID order.
func (s *Store) UniversalSynergySet() []SynergyCard {
	out := make([]SynergyCard, 0, len(s.synergyOrder))
	for _, id := range s.synergyOrder {
		out = append(out, s.synergies[id])
	}
	return out
}

// Challenges returns the challenge cards eligible for a grade band, in
// stable ID order.
func (s *Store) Challenges(gradeBand string) []ChallengeCard {
	out := make([]ChallengeCard, 0, len(s.challengeOrder))
	for _, id := range s.challengeOrder {
		c := s.challenges[id]
		if gradeBand == "" || c.GradeBand == "" || c.GradeBand == gradeBand {
			out = append(out, c)
		}
	}
	return out
}
