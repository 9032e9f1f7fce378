package chem

import (
	"encoding/json"
	"strings"

	"github.com/turtacn/MechanismLab/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Halogens
// ─────────────────────────────────────────────────────────────────────────────

// Halogen is one of the four halogens the notation parser counts.
type Halogen string

const (
	Fluorine Halogen = "F"
	Chlorine Halogen = "Cl"
	Bromine  Halogen = "Br"
	Iodine   Halogen = "I"
)

// Halogens returns the halogens in bond-label order.
func Halogens() []Halogen {
	return []Halogen{Fluorine, Chlorine, Bromine, Iodine}
}

// ─────────────────────────────────────────────────────────────────────────────
// Functional groups
// ─────────────────────────────────────────────────────────────────────────────

// FunctionalGroup is a tag from the fixed functional-group vocabulary.
type FunctionalGroup string

const (
	GroupAlkylHalide FunctionalGroup = "alkyl-halide"
	GroupAlcohol     FunctionalGroup = "alcohol"
	GroupEther       FunctionalGroup = "ether"
	GroupAlkene      FunctionalGroup = "alkene"
	GroupAlkyne      FunctionalGroup = "alkyne"
	GroupCarbonyl    FunctionalGroup = "carbonyl"
	GroupCarboxyl    FunctionalGroup = "carboxyl"
	GroupAmine       FunctionalGroup = "amine"
	GroupNitrile     FunctionalGroup = "nitrile"
	GroupThiol       FunctionalGroup = "thiol"
)

// FunctionalGroups returns the vocabulary in its canonical order.
func FunctionalGroups() []FunctionalGroup {
	return []FunctionalGroup{
		GroupAlkylHalide, GroupAlcohol, GroupEther, GroupAlkene, GroupAlkyne,
		GroupCarbonyl, GroupCarboxyl, GroupAmine, GroupNitrile, GroupThiol,
	}
}

func groupBit(g FunctionalGroup) GroupSet {
	for i, v := range FunctionalGroups() {
		if v == g {
			return 1 << uint(i)
		}
	}
	return 0
}

// GroupSet is a set of functional-group tags. Membership is a bit per
// vocabulary entry, so duplicates cannot exist and equal sets compare equal.
type GroupSet uint16

// NewGroupSet builds a set from tags. Tags outside the vocabulary are dropped.
func NewGroupSet(groups ...FunctionalGroup) GroupSet {
	var s GroupSet
	for _, g := range groups {
		s = s.With(g)
	}
	return s
}

// With returns s plus g.
func (s GroupSet) With(g FunctionalGroup) GroupSet { return s | groupBit(g) }

// Has reports whether g is in the set.
func (s GroupSet) Has(g FunctionalGroup) bool {
	bit := groupBit(g)
	return bit != 0 && s&bit != 0
}

// Len returns the number of tags in the set.
func (s GroupSet) Len() int {
	n := 0
	for _, g := range FunctionalGroups() {
		if s.Has(g) {
			n++
		}
	}
	return n
}

// List returns the tags in vocabulary order.
func (s GroupSet) List() []FunctionalGroup {
	out := make([]FunctionalGroup, 0, s.Len())
	for _, g := range FunctionalGroups() {
		if s.Has(g) {
			out = append(out, g)
		}
	}
	return out
}

func (s GroupSet) String() string {
	parts := make([]string, 0, s.Len())
	for _, g := range s.List() {
		parts = append(parts, string(g))
	}
	return strings.Join(parts, ",")
}

func (s GroupSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *GroupSet) UnmarshalJSON(data []byte) error {
	var tags []FunctionalGroup
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	var out GroupSet
	for _, tag := range tags {
		if groupBit(tag) == 0 {
			return errors.InvalidParam("unknown functional group").WithDetail("value=" + string(tag))
		}
		out = out.With(tag)
	}
	*s = out
	return nil
}

// MarshalYAML renders the set as its tag list.
func (s GroupSet) MarshalYAML() (interface{}, error) {
	return s.List(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Substitution class
// ─────────────────────────────────────────────────────────────────────────────

// SubstitutionClass is the degree of substitution of a molecule's reactive
// carbon as inferred from the notation.
type SubstitutionClass string

const (
	SubstitutionMethyl    SubstitutionClass = "methyl"
	SubstitutionPrimary   SubstitutionClass = "primary"
	SubstitutionSecondary SubstitutionClass = "secondary"
	SubstitutionTertiary  SubstitutionClass = "tertiary"
)

// SubstitutionForCarbonNeighbours maps a carbon-neighbour count to a class.
func SubstitutionForCarbonNeighbours(n int) SubstitutionClass {
	switch {
	case n <= 0:
		return SubstitutionMethyl
	case n == 1:
		return SubstitutionPrimary
	case n == 2:
		return SubstitutionSecondary
	default:
		return SubstitutionTertiary
	}
}

// Substrate converts the structural class to the matching condition axis.
func (c SubstitutionClass) Substrate() SubstrateClass {
	switch c {
	case SubstitutionMethyl:
		return SubstrateMethyl
	case SubstitutionSecondary:
		return SubstrateSecondary
	case SubstitutionTertiary:
		return SubstrateTertiary
	default:
		return SubstratePrimary
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// MoleculeFeatures
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeFeatures is the flat feature record extracted from one line
// notation. Every count is non-negative. Values are built once per parse and
// never mutated afterwards.
type MoleculeFeatures struct {
	Notation string `json:"notation" yaml:"notation"`

	Carbons  int `json:"carbons" yaml:"carbons"`
	Fluorine int `json:"fluorine" yaml:"fluorine"`
	Chlorine int `json:"chlorine" yaml:"chlorine"`
	Bromine  int `json:"bromine" yaml:"bromine"`
	Iodine   int `json:"iodine" yaml:"iodine"`
	Oxygen   int `json:"oxygen" yaml:"oxygen"`
	Nitrogen int `json:"nitrogen" yaml:"nitrogen"`
	Sulfur   int `json:"sulfur" yaml:"sulfur"`

	DoubleBonds int `json:"double_bonds" yaml:"double_bonds"`
	TripleBonds int `json:"triple_bonds" yaml:"triple_bonds"`
	Rings       int `json:"rings" yaml:"rings"`
	Branches    int `json:"branches" yaml:"branches"`

	// AromaticAtoms counts lower-case atom tokens.
	AromaticAtoms int `json:"aromatic_atoms" yaml:"aromatic_atoms"`

	Groups       GroupSet          `json:"functional_groups" yaml:"functional_groups"`
	Substitution SubstitutionClass `json:"substitution" yaml:"substitution"`
}

// HalogenCount returns the count for h.
func (f *MoleculeFeatures) HalogenCount(h Halogen) int {
	switch h {
	case Fluorine:
		return f.Fluorine
	case Chlorine:
		return f.Chlorine
	case Bromine:
		return f.Bromine
	case Iodine:
		return f.Iodine
	}
	return 0
}

// TotalHalogens sums the four halogen counts.
func (f *MoleculeFeatures) TotalHalogens() int {
	return f.Fluorine + f.Chlorine + f.Bromine + f.Iodine
}

// HasGroup reports whether the functional-group tag g was detected.
func (f *MoleculeFeatures) HasGroup(g FunctionalGroup) bool {
	return f.Groups.Has(g)
}
