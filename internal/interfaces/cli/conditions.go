package cli

import (
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/turtacn/MechanismLab/pkg/errors"
	"github.com/turtacn/MechanismLab/pkg/types/chem"
)

// conditionFlags binds the five condition axes to command flags.
type conditionFlags struct {
	substrate    string
	nucleophile  string
	leavingGroup string
	solvent      string
	temperature  string
}

func (f *conditionFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.substrate, "substrate", "", "substrate class ("+joinLabels(chem.SubstrateClasses())+")")
	fs.StringVar(&f.nucleophile, "nucleophile", "", "nucleophile/base class ("+joinLabels(chem.NucleophileClasses())+")")
	fs.StringVar(&f.leavingGroup, "leaving-group", "", "leaving group quality ("+joinLabels(chem.LeavingGroupQualities())+")")
	fs.StringVar(&f.solvent, "solvent", "", "solvent class ("+joinLabels(chem.SolventClasses())+")")
	fs.StringVar(&f.temperature, "temperature", "", "temperature band ("+joinLabels(chem.TemperatureBands())+")")
}

func (f *conditionFlags) isSet() bool {
	return f.substrate != "" || f.nucleophile != "" || f.leavingGroup != "" || f.solvent != "" || f.temperature != ""
}

// conditionSet returns nil when no axis was given and an error when only
// some were.
func (f *conditionFlags) conditionSet() (*chem.ConditionSet, error) {
	if !f.isSet() {
		return nil, nil
	}
	var missing []string
	for name, v := range map[string]string{
		"--substrate": f.substrate, "--nucleophile": f.nucleophile, "--leaving-group": f.leavingGroup,
		"--solvent": f.solvent, "--temperature": f.temperature,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.New(errors.ErrCodeInvalidCondition, "incomplete condition set").
			WithDetail("missing=" + strings.Join(missing, ","))
	}

	var (
		c   chem.ConditionSet
		err error
	)
	if c.Substrate, err = chem.ParseSubstrateClass(f.substrate); err != nil {
		return nil, err
	}
	if c.Nucleophile, err = chem.ParseNucleophileClass(f.nucleophile); err != nil {
		return nil, err
	}
	if c.LeavingGroup, err = chem.ParseLeavingGroupQuality(f.leavingGroup); err != nil {
		return nil, err
	}
	if c.Solvent, err = chem.ParseSolventClass(f.solvent); err != nil {
		return nil, err
	}
	if c.Temperature, err = chem.ParseTemperatureBand(f.temperature); err != nil {
		return nil, err
	}
	return &c, nil
}

func joinLabels[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}
