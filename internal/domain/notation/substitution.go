package notation

import (
	"regexp"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

var (
	// a carbon carrying two parenthesized branches that both hold a carbon
	reTwoCarbonBranches = regexp.MustCompile(`C\([^()]*[Cc][^()]*\)\([^()]*[Cc][^()]*\)`)
	reOneCarbonBranch   = regexp.MustCompile(`C\([^()]*[Cc][^()]*\)`)
)

// substitution infers the substitution class of the reactive carbon.
//
// The reactive carbon is the first carbon bonded to a halogen, or failing
// that to O, N or S; its class follows from how many carbons it is bonded
// to. Without a heteroatom handle the class falls back to branch patterns in
// the skeleton. This is a local heuristic and can misjudge heavily branched
// or polyfunctional molecules.
func (s *scanner) substitution(skeleton string) chem.SubstitutionClass {
	if centre := s.reactiveCarbon(); centre >= 0 {
		return chem.SubstitutionForCarbonNeighbours(s.carbonNeighbours(centre))
	}

	switch {
	case reTwoCarbonBranches.MatchString(skeleton):
		return chem.SubstitutionTertiary
	case reOneCarbonBranch.MatchString(skeleton):
		return chem.SubstitutionSecondary
	}

	carbons := 0
	for _, a := range s.atoms {
		if a.element == elemCarbon {
			carbons++
		}
	}
	if carbons >= 2 {
		return chem.SubstitutionPrimary
	}
	return chem.SubstitutionMethyl
}

func (s *scanner) reactiveCarbon() int {
	handles := [][]string{
		{elemFluorine, elemChlorine, elemBromine, elemIodine},
		{elemOxygen, elemNitrogen, elemSulfur},
	}
	for _, elements := range handles {
		for i, a := range s.atoms {
			if !contains(elements, a.element) {
				continue
			}
			for _, n := range s.neighbours(i) {
				if s.atoms[n].element == elemCarbon {
					return n
				}
			}
		}
	}
	return -1
}

func (s *scanner) carbonNeighbours(idx int) int {
	count := 0
	for _, n := range s.neighbours(idx) {
		if s.atoms[n].element == elemCarbon {
			count++
		}
	}
	return count
}

// neighbours returns the distinct atoms bonded to idx in bond order.
func (s *scanner) neighbours(idx int) []int {
	var out []int
	seen := make(map[int]bool)
	for _, b := range s.bonds {
		other := -1
		switch idx {
		case b.a:
			other = b.b
		case b.b:
			other = b.a
		}
		if other >= 0 && !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
