package plans

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeRules selects optional identifier rewrites applied on top of the
// base trim+uppercase. All rules are off by default.
type NormalizeRules struct {
	// CollapseSpaces turns runs of internal whitespace into one space.
	CollapseSpaces bool `mapstructure:"collapse_spaces" yaml:"collapse_spaces"`

	// SpaceAsDash turns runs of internal whitespace into "-", so "5501 V"
	// matches "5501-V". Takes precedence over CollapseSpaces.
	SpaceAsDash bool `mapstructure:"space_as_dash" yaml:"space_as_dash"`

	// UnicodeFold applies NFKC compatibility folding, so full-width digits
	// and letters compare equal to their ASCII forms.
	UnicodeFold bool `mapstructure:"unicode_fold" yaml:"unicode_fold"`
}

// Normalizer canonicalizes raw plan identifiers from the catalog, the overlay
// and user input. One Normalizer must be shared by every boundary that
// compares identifiers.
type Normalizer struct {
	rules NormalizeRules
}

// DefaultNormalizer trims and uppercases only.
var DefaultNormalizer = Normalizer{}

// NewNormalizer returns a Normalizer applying rules.
func NewNormalizer(rules NormalizeRules) Normalizer {
	return Normalizer{rules: rules}
}

// Rules returns the rule set of n.
func (n Normalizer) Rules() NormalizeRules { return n.rules }

// maxPasses bounds the fixpoint loop in Normalize. Every rule set reaches its
// fixpoint in at most two passes on real data.
const maxPasses = 4

// Normalize returns the canonical form of raw. The result is a fixpoint:
// Normalize(Normalize(x)) == Normalize(x).
func (n Normalizer) Normalize(raw string) PlanID {
	s := raw
	for range maxPasses {
		next := n.pass(s)
		if next == s {
			break
		}
		s = next
	}
	return PlanID(s)
}

func (n Normalizer) pass(s string) string {
	if n.rules.UnicodeFold {
		s = norm.NFKC.String(s)
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case n.rules.SpaceAsDash:
		s = replaceSpaceRuns(s, "-")
	case n.rules.CollapseSpaces:
		s = replaceSpaceRuns(s, " ")
	}
	return s
}

// NormalizeAll normalizes each raw identifier.
func (n Normalizer) NormalizeAll(raw []string) []PlanID {
	out := make([]PlanID, len(raw))
	for i, r := range raw {
		out[i] = n.Normalize(r)
	}
	return out
}

// Normalize canonicalizes raw with DefaultNormalizer.
func Normalize(raw string) PlanID {
	return DefaultNormalizer.Normalize(raw)
}

// replaceSpaceRuns replaces each run of whitespace in s with sep.
func replaceSpaceRuns(s, sep string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteString(sep)
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
