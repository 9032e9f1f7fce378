package notation

import (
	"regexp"
	"strings"

	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// The patterns below run over the skeleton string built during the scan:
// one character per atom (Cl is 'L', Br is 'B', aromatic atoms lower-case,
// unknown bracket atoms '*'), bond and branch markers kept, ring digits
// dropped. Each pattern is matched independently of the others.

var (
	reAlkylHalide = regexp.MustCompile(`C[()]*[FLBI]|[FLBI][()]*C`)
	reAlkene      = regexp.MustCompile(`C=C|C\(=C|\)=C`)
	reAlkyne      = regexp.MustCompile(`C#C|C\(#C|\)#C`)
	reNitrile     = regexp.MustCompile(`C#N|N#C|C\(#N\)`)
	reCarbonyl    = regexp.MustCompile(`C=O|O=C|C\(=O|\)=O`)
	reThiol       = regexp.MustCompile(`^S[Cc]|[Cc)]S$|\(S\)|[Cc]S\)`)
	reAlcohol     = regexp.MustCompile(`^O[Cc]|[Cc)]O$|\(O\)|[Cc]O\)`)
	reEther       = regexp.MustCompile(`[Cc)][Oo][Cc(]`)

	// carbonylOxygen removes C=O oxygens so they are not read as hydroxyl or
	// ether oxygens.
	carbonylOxygen = regexp.MustCompile(`\(=O\)|=O|O=`)
)

// carboxylMasks replace a whole acid group with 'Q'. A notation is tagged
// carboxyl when any mask applies.
var carboxylMasks = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`C\(=O\)O(\)|\.|$)`), "Q${1}"},
	{regexp.MustCompile(`^OC\(=O\)`), "Q"},
	{regexp.MustCompile(`\(OC\(=O\)`), "(Q"},
	{regexp.MustCompile(`C\(O\)=O`), "Q"},
	{regexp.MustCompile(`O=C\(O\)`), "Q"},
	{regexp.MustCompile(`^OC=O|O=CO$`), "Q"},
}

func detectGroups(skeleton string) chem.GroupSet {
	var groups chem.GroupSet

	if reAlkylHalide.MatchString(skeleton) {
		groups = groups.With(chem.GroupAlkylHalide)
	}
	if reAlkene.MatchString(skeleton) {
		groups = groups.With(chem.GroupAlkene)
	}
	if reAlkyne.MatchString(skeleton) {
		groups = groups.With(chem.GroupAlkyne)
	}
	if reNitrile.MatchString(skeleton) {
		groups = groups.With(chem.GroupNitrile)
	}
	if reCarbonyl.MatchString(skeleton) {
		groups = groups.With(chem.GroupCarbonyl)
	}
	if reThiol.MatchString(skeleton) {
		groups = groups.With(chem.GroupThiol)
	}

	masked := skeleton
	for _, m := range carboxylMasks {
		masked = m.re.ReplaceAllString(masked, m.repl)
	}
	if masked != skeleton {
		groups = groups.With(chem.GroupCarboxyl)
	}
	masked = carbonylOxygen.ReplaceAllString(masked, "")

	if reAlcohol.MatchString(masked) {
		groups = groups.With(chem.GroupAlcohol)
	}
	if reEther.MatchString(masked) {
		groups = groups.With(chem.GroupEther)
	}

	if strings.ContainsRune(reNitrile.ReplaceAllString(skeleton, ""), 'N') {
		groups = groups.With(chem.GroupAmine)
	}
	return groups
}
