// catalog/cards.go
package catalog

// CSuite is the executive lens a participant aligns with at game start.
type CSuite string

const (
	SuiteCEO  CSuite = "CEO"
	SuiteCFO  CSuite = "CFO"
	SuiteCTO  CSuite = "CTO"
	SuiteCOO  CSuite = "COO"
	SuiteCMO  CSuite = "CMO"
	SuiteCHRO CSuite = "CHRO"
)

// suiteRing fixes the adjacency order used for alignment scoring.
var suiteRing = [...]CSuite{SuiteCEO, SuiteCFO, SuiteCTO, SuiteCOO, SuiteCMO, SuiteCHRO}

// Suites returns all valid C-Suite affiliations.
func Suites() []CSuite {
	out := make([]CSuite, len(suiteRing))
	copy(out, suiteRing[:])
	return out
}

// ValidSuite reports whether s is one of the known affiliations.
func ValidSuite(s CSuite) bool {
	for _, v := range suiteRing {
		if v == s {
			return true
		}
	}
	return false
}

// AlignmentTier classifies the distance between a participant's home suite
// and a role card's organization.
type AlignmentTier string

const (
	AlignmentHome     AlignmentTier = "home"
	AlignmentAdjacent AlignmentTier = "adjacent"
	AlignmentDistant  AlignmentTier = "distant"
)

// Alignment computes the tier from ring distance: 0 is home, 1 is adjacent,
// anything further is distant.
func Alignment(home, org CSuite) AlignmentTier {
	hi, oi := -1, -1
	for i, v := range suiteRing {
		if v == home {
			hi = i
		}
		if v == org {
			oi = i
		}
	}
	if hi < 0 || oi < 0 {
		return AlignmentDistant
	}
	d := hi - oi
	if d < 0 {
		d = -d
	}
	if n := len(suiteRing) - d; n < d {
		d = n
	}
	switch d {
	case 0:
		return AlignmentHome
	case 1:
		return AlignmentAdjacent
	default:
		return AlignmentDistant
	}
}

// PCategory is the business-problem dimension of a challenge card.
type PCategory string

const (
	CategoryPeople    PCategory = "people"
	CategoryProduct   PCategory = "product"
	CategoryProcess   PCategory = "process"
	CategoryPlace     PCategory = "place"
	CategoryPromotion PCategory = "promotion"
	CategoryPrice     PCategory = "price"
)

// QualityTier is how well a role card matches a challenge's P-category.
type QualityTier string

const (
	QualityPerfect QualityTier = "perfect"
	QualityGood    QualityTier = "good"
	QualityNotIn   QualityTier = "not_in"
)

// EffectivenessTier is how well a synergy card matches a P-category.
type EffectivenessTier string

const (
	EffectivenessPrimary   EffectivenessTier = "primary"
	EffectivenessSecondary EffectivenessTier = "secondary"
	EffectivenessNeutral   EffectivenessTier = "neutral"
)

// RoleCard is a professional role a participant can play against a challenge.
type RoleCard struct {
	ID        string
	Name      string
	Org       CSuite
	GradeBand string
	Quality   map[PCategory]QualityTier
}

// QualityFor resolves the card's quality tier for a P-category. Categories
// not listed on the card are not_in.
func (c RoleCard) QualityFor(cat PCategory) QualityTier {
	if tier, ok := c.Quality[cat]; ok {
		return tier
	}
	return QualityNotIn
}

// SynergyCard is a universal booster card shared by all participants.
type SynergyCard struct {
	ID            string
	Name          string
	Effectiveness map[PCategory]EffectivenessTier
}

// EffectivenessFor resolves the card's tier for a P-category. Categories not
// listed are neutral.
func (c SynergyCard) EffectivenessFor(cat PCategory) EffectivenessTier {
	if tier, ok := c.Effectiveness[cat]; ok {
		return tier
	}
	return EffectivenessNeutral
}

// ChallengeCard is a business problem posed to all participants in a round.
type ChallengeCard struct {
	ID        string
	Title     string
	Category  PCategory
	GradeBand string
}
