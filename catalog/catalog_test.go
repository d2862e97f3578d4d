package catalog

import (
	"testing"
)

func TestAlignment(t *testing.T) {
	tests := []struct {
		home CSuite
		org  CSuite
		want AlignmentTier
	}{
		{SuiteCEO, SuiteCEO, AlignmentHome},
		{SuiteCEO, SuiteCFO, AlignmentAdjacent},
		{SuiteCEO, SuiteCHRO, AlignmentAdjacent}, // ring wraps
		{SuiteCEO, SuiteCTO, AlignmentDistant},
		{SuiteCEO, SuiteCOO, AlignmentDistant},
		{SuiteCFO, SuiteCTO, AlignmentAdjacent},
		{SuiteCHRO, SuiteCMO, AlignmentAdjacent},
		{SuiteCTO, SuiteCHRO, AlignmentDistant},
	}
	for _, tt := range tests {
		if got := Alignment(tt.home, tt.org); got != tt.want {
			t.Errorf("Alignment(%s, %s) = %s, want %s", tt.home, tt.org, got, tt.want)
		}
	}
}

func TestAlignmentSymmetry(t *testing.T) {
	for _, a := range Suites() {
		for _, b := range Suites() {
			if Alignment(a, b) != Alignment(b, a) {
				t.Errorf("Alignment(%s, %s) != Alignment(%s, %s)", a, b, b, a)
			}
		}
	}
}

func TestAlignmentUnknownSuite(t *testing.T) {
	if got := Alignment("CXO", SuiteCEO); got != AlignmentDistant {
		t.Errorf("Alignment with unknown suite = %s, want distant", got)
	}
}

func TestValidSuite(t *testing.T) {
	for _, s := range Suites() {
		if !ValidSuite(s) {
			t.Errorf("ValidSuite(%s) = false", s)
		}
	}
	if ValidSuite("CXO") {
		t.Error("ValidSuite(CXO) should be false")
	}
	if ValidSuite("") {
		t.Error("ValidSuite(empty) should be false")
	}
}

func TestRoleCardQualityFor(t *testing.T) {
	card := RoleCard{
		ID:      "r1",
		Quality: map[PCategory]QualityTier{CategoryPeople: QualityPerfect, CategoryPrice: QualityGood},
	}
	if got := card.QualityFor(CategoryPeople); got != QualityPerfect {
		t.Errorf("QualityFor(people) = %s, want perfect", got)
	}
	if got := card.QualityFor(CategoryProcess); got != QualityNotIn {
		t.Errorf("QualityFor(process) = %s, want not_in for unlisted category", got)
	}
}

func TestSynergyCardEffectivenessFor(t *testing.T) {
	card := SynergyCard{
		ID:            "s1",
		Effectiveness: map[PCategory]EffectivenessTier{CategoryProduct: EffectivenessPrimary},
	}
	if got := card.EffectivenessFor(CategoryProduct); got != EffectivenessPrimary {
		t.Errorf("EffectivenessFor(product) = %s, want primary", got)
	}
	if got := card.EffectivenessFor(CategoryPlace); got != EffectivenessNeutral {
		t.Errorf("EffectivenessFor(place) = %s, want neutral for unlisted category", got)
	}
}

func TestStoreLookupsAndFilters(t *testing.T) {
	store := NewStore(
		[]RoleCard{
			{ID: "r2", GradeBand: "middle"},
			{ID: "r1", GradeBand: "high"},
			{ID: "r3"}, // no band: eligible everywhere
		},
		[]SynergyCard{{ID: "s1"}, {ID: "s2"}},
		[]ChallengeCard{{ID: "c1", GradeBand: "middle"}, {ID: "c2"}},
	)

	if _, ok := store.GetRoleCard("r1"); !ok {
		t.Fatal("GetRoleCard(r1) should exist")
	}
	if _, ok := store.GetRoleCard("missing"); ok {
		t.Fatal("GetRoleCard(missing) should not exist")
	}

	middle := store.RoleCards("middle")
	if len(middle) != 2 {
		t.Fatalf("RoleCards(middle) returned %d cards, want 2 (banded + universal)", len(middle))
	}

	all := store.RoleCards("")
	if len(all) != 3 {
		t.Fatalf("RoleCards(empty band) returned %d cards, want all 3", len(all))
	}
	// Stable ID order.
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("RoleCards not in stable ID order: %s before %s", all[i-1].ID, all[i].ID)
		}
	}

	if got := len(store.UniversalSynergySet()); got != 2 {
		t.Fatalf("UniversalSynergySet returned %d cards, want 2", got)
	}
	if got := len(store.Challenges("high")); got != 1 {
		t.Fatalf("Challenges(high) returned %d, want 1 (universal only)", got)
	}
}

func TestNewMatrixBounds(t *testing.T) {
	if _, err := NewMatrix([]MatrixEntry{{RoleID: "r1", SynergyID: "s1", Multiplier: 1.20}}); err == nil {
		t.Fatal("NewMatrix should reject a multiplier above the bound")
	}
	if _, err := NewMatrix([]MatrixEntry{{RoleID: "r1", SynergyID: "s1", Multiplier: 0.90}}); err == nil {
		t.Fatal("NewMatrix should reject a multiplier below the bound")
	}

	m, err := NewMatrix([]MatrixEntry{
		{RoleID: "r1", SynergyID: "s1", Multiplier: 0.95},
		{RoleID: "r1", SynergyID: "s2", Multiplier: 1.15},
	})
	if err != nil {
		t.Fatalf("NewMatrix rejected valid entries: %v", err)
	}

	if v, ok := m.Multiplier("r1", "s1"); !ok || v != 0.95 {
		t.Errorf("Multiplier(r1, s1) = (%v, %v), want (0.95, true)", v, ok)
	}
	if _, ok := m.Multiplier("r1", "s9"); ok {
		t.Error("Multiplier for a missing pair should report ok=false")
	}
}
