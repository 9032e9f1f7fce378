// Package notation extracts flat structural features from a simplified
// linear molecular notation (a SMILES-like string of atoms, bond markers,
// branches and ring-closure digits).
//
// The parser is a single left-to-right scan. It never builds a full
// molecular graph with hydrogens; it keeps just enough connectivity (heavy
// atoms and the bonds between them) to count bond multiplicities and to
// locate the reactive carbon. Malformed input degrades gracefully: unknown
// characters are skipped and unmatched ring digits are dropped.
package notation

import (
	"strings"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// ErrEmptyInput is returned for an empty or whitespace-only notation.
var ErrEmptyInput = errors.New(errors.ErrCodeNotationEmpty, "notation must not be empty")

// Element symbols as they appear in the atom list.
const (
	elemCarbon   = "C"
	elemNitrogen = "N"
	elemOxygen   = "O"
	elemSulfur   = "S"
	elemFluorine = "F"
	elemChlorine = "Cl"
	elemBromine  = "Br"
	elemIodine   = "I"
	elemOther    = ""
)

type atom struct {
	element  string
	aromatic bool
}

type bond struct {
	a, b  int
	order int
}

// scanner holds the per-call parse state. It is never shared between calls.
type scanner struct {
	src string
	pos int

	atoms []atom
	bonds []bond

	prev     int // atom the next atom bonds to, -1 after '.' or at start
	lastBond int // most recently completed bond, -1 when none
	stack    []int
	ringOpen map[int]int // label to opening atom, -1 until an atom arrives
	pending  []int       // labels opened before any atom they could attach to

	rings    int
	branches int

	skeleton strings.Builder
}

// Parse tokenizes notation and returns its feature record. The only failure
// is ErrEmptyInput; every other irregularity is tolerated.
func Parse(notation string) (*chem.MoleculeFeatures, error) {
	if strings.TrimSpace(notation) == "" {
		return nil, ErrEmptyInput.WithDetail("notation=" + quoteShort(notation))
	}

	s := &scanner{
		src:      notation,
		prev:     -1,
		lastBond: -1,
		ringOpen: make(map[int]int),
	}
	s.scan()
	return s.features(), nil
}

func (s *scanner) scan() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '[':
			s.bracketAtom()
			continue
		case c == 'C':
			if s.peek(1) == 'l' {
				s.addAtom(elemChlorine, false)
				s.pos += 2
				continue
			}
			s.addAtom(elemCarbon, false)
		case c == 'B':
			if s.peek(1) == 'r' {
				s.addAtom(elemBromine, false)
				s.pos += 2
				continue
			}
			// boron is outside the counted vocabulary
		case c == 'N', c == 'O', c == 'S', c == 'F', c == 'I':
			s.addAtom(string(c), false)
		case c == 'c', c == 'n', c == 'o', c == 's':
			s.addAtom(strings.ToUpper(string(c)), true)
		case c == '(':
			s.branches++
			s.stack = append(s.stack, s.prev)
			s.skeleton.WriteByte('(')
		case c == ')':
			if n := len(s.stack); n > 0 {
				s.prev = s.stack[n-1]
				s.stack = s.stack[:n-1]
			}
			s.skeleton.WriteByte(')')
		case c == '=':
			s.upgradeLastBond(2)
			s.skeleton.WriteByte('=')
		case c == '#':
			s.upgradeLastBond(3)
			s.skeleton.WriteByte('#')
		case c == '.':
			s.prev = -1
			s.skeleton.WriteByte('.')
		case isDigit(c):
			s.ringClosure(int(c - '0'))
		case c == '%':
			if isDigit(s.peek(1)) && isDigit(s.peek(2)) {
				s.ringClosure(int(s.peek(1)-'0')*10 + int(s.peek(2)-'0'))
				s.pos += 3
				continue
			}
		}
		s.pos++
	}
}

// bracketAtom consumes "[...]" as a single atom. Isotope digits, hydrogen
// counts and charges inside the bracket are ignored.
func (s *scanner) bracketAtom() {
	end := strings.IndexByte(s.src[s.pos:], ']')
	var body string
	if end < 0 {
		body = s.src[s.pos+1:]
		s.pos = len(s.src)
	} else {
		body = s.src[s.pos+1 : s.pos+end]
		s.pos += end + 1
	}

	i := 0
	for i < len(body) && isDigit(body[i]) {
		i++
	}
	body = body[i:]
	if body == "" {
		s.addAtom(elemOther, false)
		return
	}

	first := body[0]
	if first >= 'A' && first <= 'Z' && len(body) > 1 && body[1] >= 'a' && body[1] <= 'z' {
		switch body[:2] {
		case elemChlorine:
			s.addAtom(elemChlorine, false)
		case elemBromine:
			s.addAtom(elemBromine, false)
		default:
			s.addAtom(elemOther, false)
		}
		return
	}

	switch first {
	case 'C', 'N', 'O', 'S', 'F', 'I':
		s.addAtom(string(first), false)
	case 'c', 'n', 'o', 's':
		s.addAtom(strings.ToUpper(string(first)), true)
	default:
		s.addAtom(elemOther, false)
	}
}

func (s *scanner) addAtom(element string, aromatic bool) {
	idx := len(s.atoms)
	s.atoms = append(s.atoms, atom{element: element, aromatic: aromatic})
	if s.prev >= 0 {
		s.addBond(s.prev, idx)
	}
	s.prev = idx
	for _, label := range s.pending {
		if opener, open := s.ringOpen[label]; open && opener < 0 {
			s.ringOpen[label] = idx
		}
	}
	s.pending = s.pending[:0]
	s.skeleton.WriteByte(skeletonChar(element, aromatic))
}

func (s *scanner) addBond(a, b int) {
	s.bonds = append(s.bonds, bond{a: a, b: b, order: 1})
	s.lastBond = len(s.bonds) - 1
}

// upgradeLastBond applies a multiplicity marker to the most recently
// completed bond. With no completed bond the marker is ignored.
func (s *scanner) upgradeLastBond(order int) {
	if s.lastBond < 0 {
		return
	}
	s.bonds[s.lastBond].order = order
}

// ringClosure opens a ring on the first occurrence of label and closes it on
// the second, freeing the label for reuse. A label seen with no preceding
// atom attaches to the next atom; every matched pair counts as a ring even
// when one end has no atom to bond.
func (s *scanner) ringClosure(label int) {
	opener, open := s.ringOpen[label]
	if !open {
		s.ringOpen[label] = s.prev
		if s.prev < 0 {
			s.pending = append(s.pending, label)
		}
		return
	}
	delete(s.ringOpen, label)
	s.rings++
	if opener >= 0 && s.prev >= 0 && opener != s.prev {
		s.addBond(opener, s.prev)
	}
}

func (s *scanner) features() *chem.MoleculeFeatures {
	f := &chem.MoleculeFeatures{
		Notation: s.src,
		Rings:    s.rings,
		Branches: s.branches,
	}
	for _, a := range s.atoms {
		if a.aromatic {
			f.AromaticAtoms++
		}
		switch a.element {
		case elemCarbon:
			f.Carbons++
		case elemNitrogen:
			f.Nitrogen++
		case elemOxygen:
			f.Oxygen++
		case elemSulfur:
			f.Sulfur++
		case elemFluorine:
			f.Fluorine++
		case elemChlorine:
			f.Chlorine++
		case elemBromine:
			f.Bromine++
		case elemIodine:
			f.Iodine++
		}
	}
	for _, b := range s.bonds {
		switch b.order {
		case 2:
			f.DoubleBonds++
		case 3:
			f.TripleBonds++
		}
	}

	skeleton := s.skeleton.String()
	f.Groups = detectGroups(skeleton)
	f.Substitution = s.substitution(skeleton)
	return f
}

func (s *scanner) peek(offset int) byte {
	if i := s.pos + offset; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// skeletonChar maps an atom to the one-character form used by the
// functional-group patterns.
func skeletonChar(element string, aromatic bool) byte {
	switch element {
	case elemChlorine:
		return 'L'
	case elemBromine:
		return 'B'
	case elemOther:
		return '*'
	}
	if aromatic {
		return element[0] + ('a' - 'A')
	}
	return element[0]
}

func quoteShort(s string) string {
	if len(s) > 16 {
		s = s[:16]
	}
	return `"` + s + `"`
}
