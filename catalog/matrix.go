// catalog/matrix.go
package catalog

import "fmt"

// Soft-skills multiplier bounds enforced at load time.
const (
	MinMultiplier = 0.95
	MaxMultiplier = 1.15
)

// MatrixEntry is a single (role, synergy) multiplier as delivered by catalog
// ingestion. It exists only on the load path; once folded into a Matrix the
// raw values are not reachable again except through Multiplier.
type MatrixEntry struct {
	RoleID     string
	SynergyID  string
	Multiplier float64
}

// Matrix is the confidential soft-skills multiplier table. The table itself
// is unexported and the type has no serialization methods. The only consumer
// is the scoring engine, which receives the Matrix at wiring time; nothing
// participant-facing may hold a reference.
type Matrix struct {
	entries map[string]float64
}

// NewMatrix folds loaded entries into a lookup table. Entries outside the
// allowed multiplier bounds are rejected.
func NewMatrix(entries []MatrixEntry) (*Matrix, error) {
	m := &Matrix{entries: make(map[string]float64, len(entries))}
	for _, e := range entries {
		if e.Multiplier < MinMultiplier || e.Multiplier > MaxMultiplier {
			return nil, fmt.Errorf("matrix entry (%s,%s): multiplier %.4f out of bounds", e.RoleID, e.SynergyID, e.Multiplier)
		}
		m.entries[matrixKey(e.RoleID, e.SynergyID)] = e.Multiplier
	}
	return m, nil
}

// Multiplier returns the soft-skills multiplier for a (role, synergy) pair.
// The second return is false when no entry exists; callers fall back to 1.0.
func (m *Matrix) Multiplier(roleID, synergyID string) (float64, bool) {
	v, ok := m.entries[matrixKey(roleID, synergyID)]
	return v, ok
}

func matrixKey(roleID, synergyID string) string {
	return roleID + "|" + synergyID
}
