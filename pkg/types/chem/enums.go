// Package chem defines the value types shared by every layer of MechanismLab:
// reaction-condition enums, molecule feature records, analysis results and
// energy profiles. No engine logic lives here; the types are safe to import
// from the domain, the transport layers and the client SDK alike.
package chem

import (
	"strings"

	"github.com/turtacn/MechanismLab/pkg/errors"
)

// normalizeLabel folds case and accepts "_" or " " wherever the canonical
// label uses "-".
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, " ", "-")
}

func parseEnum[T ~string](axis, raw string, values []T) (T, error) {
	want := normalizeLabel(raw)
	for _, v := range values {
		if normalizeLabel(string(v)) == want {
			return v, nil
		}
	}
	var zero T
	return zero, errors.New(errors.ErrCodeInvalidCondition, "unknown "+axis).
		WithDetail("value=" + raw)
}

func isMember[T comparable](v T, values []T) bool {
	for _, m := range values {
		if m == v {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Mechanism
// ─────────────────────────────────────────────────────────────────────────────

// Mechanism is a reaction mechanism sub-type. The zero value is
// MechanismNone, which serializes as JSON null.
type Mechanism string

const (
	MechanismNone          Mechanism = ""
	MechanismSN2           Mechanism = "SN2"
	MechanismSN1           Mechanism = "SN1"
	MechanismE2            Mechanism = "E2"
	MechanismE1            Mechanism = "E1"
	MechanismSN1OrSN2      Mechanism = "SN1-or-SN2"
	MechanismHydrogenation Mechanism = "hydrogenation"
)

// ScoredMechanisms returns the four mechanisms the condition scorer ranks,
// in tie-break order.
func ScoredMechanisms() []Mechanism {
	return []Mechanism{MechanismSN2, MechanismSN1, MechanismE2, MechanismE1}
}

// Mechanisms returns every non-empty mechanism label.
func Mechanisms() []Mechanism {
	return []Mechanism{
		MechanismSN2, MechanismSN1, MechanismE2, MechanismE1,
		MechanismSN1OrSN2, MechanismHydrogenation,
	}
}

// ParseMechanism resolves a mechanism label. "none" and "" map to
// MechanismNone.
func ParseMechanism(s string) (Mechanism, error) {
	switch normalizeLabel(s) {
	case "", "none", "null":
		return MechanismNone, nil
	case "sn1-or-sn2", "sn2-or-sn1":
		return MechanismSN1OrSN2, nil
	}
	m, err := parseEnum("mechanism", s, Mechanisms())
	if err != nil {
		return MechanismNone, errors.New(errors.ErrCodeUnsupportedMechanism, "unsupported mechanism").
			WithDetail("value=" + s)
	}
	return m, nil
}

func (m Mechanism) String() string {
	if m == MechanismNone {
		return "none"
	}
	return string(m)
}

// IsNone reports whether no mechanism was determined.
func (m Mechanism) IsNone() bool { return m == MechanismNone }

// IsSubstitutionOrElimination reports whether m belongs to the SN/E family.
func (m Mechanism) IsSubstitutionOrElimination() bool {
	switch m {
	case MechanismSN1, MechanismSN2, MechanismSN1OrSN2, MechanismE1, MechanismE2:
		return true
	}
	return false
}

// IsElimination reports whether m is E1 or E2.
func (m Mechanism) IsElimination() bool {
	return m == MechanismE1 || m == MechanismE2
}

// Steps returns the number of elementary steps on the reaction coordinate.
func (m Mechanism) Steps() int {
	if m == MechanismSN1 || m == MechanismE1 {
		return 2
	}
	return 1
}

// Candidates lists the concrete mechanisms an ambiguous label stands for.
// Concrete labels return themselves; MechanismNone returns nil.
func (m Mechanism) Candidates() []Mechanism {
	switch m {
	case MechanismNone:
		return nil
	case MechanismSN1OrSN2:
		return []Mechanism{MechanismSN1, MechanismSN2}
	}
	return []Mechanism{m}
}

// ThermoDefault is the concrete mechanism used for energetics. The ambiguous
// secondary-substrate label defaults to SN2.
func (m Mechanism) ThermoDefault() Mechanism {
	if m == MechanismSN1OrSN2 {
		return MechanismSN2
	}
	return m
}

func (m Mechanism) MarshalJSON() ([]byte, error) {
	if m == MechanismNone {
		return []byte("null"), nil
	}
	return []byte(`"` + string(m) + `"`), nil
}

func (m *Mechanism) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*m = MechanismNone
		return nil
	}
	parsed, err := ParseMechanism(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Category and confidence
// ─────────────────────────────────────────────────────────────────────────────

// Category is the broad reaction class inferred from a feature comparison.
type Category string

const (
	CategorySubstitution Category = "substitution"
	CategoryElimination  Category = "elimination"
	CategoryAddition     Category = "addition"
	CategoryUnknown      Category = "unknown"
)

// Confidence tags how much weight a learner should give an analysis.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ─────────────────────────────────────────────────────────────────────────────
// Condition axes
// ─────────────────────────────────────────────────────────────────────────────

// SubstrateClass describes the carbon bearing the leaving group.
type SubstrateClass string

const (
	SubstrateMethyl    SubstrateClass = "methyl"
	SubstratePrimary   SubstrateClass = "primary"
	SubstrateSecondary SubstrateClass = "secondary"
	SubstrateTertiary  SubstrateClass = "tertiary"
	SubstrateVinyl     SubstrateClass = "vinyl"
	SubstrateAllylic   SubstrateClass = "allylic"
	SubstrateBenzylic  SubstrateClass = "benzylic"
)

func SubstrateClasses() []SubstrateClass {
	return []SubstrateClass{
		SubstrateMethyl, SubstratePrimary, SubstrateSecondary, SubstrateTertiary,
		SubstrateVinyl, SubstrateAllylic, SubstrateBenzylic,
	}
}

func ParseSubstrateClass(s string) (SubstrateClass, error) {
	return parseEnum("substrate class", s, SubstrateClasses())
}

func (c SubstrateClass) IsValid() bool { return isMember(c, SubstrateClasses()) }

func (c *SubstrateClass) UnmarshalText(text []byte) error {
	v, err := ParseSubstrateClass(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// NucleophileClass describes the strength and bulk of the nucleophile/base.
type NucleophileClass string

const (
	NucleophileStrongSmall  NucleophileClass = "strong-small"
	NucleophileStrongNormal NucleophileClass = "strong-normal"
	NucleophileStrongBulky  NucleophileClass = "strong-bulky"
	NucleophileWeak         NucleophileClass = "weak"
	NucleophileNone         NucleophileClass = "none"
)

func NucleophileClasses() []NucleophileClass {
	return []NucleophileClass{
		NucleophileStrongSmall, NucleophileStrongNormal, NucleophileStrongBulky,
		NucleophileWeak, NucleophileNone,
	}
}

func ParseNucleophileClass(s string) (NucleophileClass, error) {
	return parseEnum("nucleophile class", s, NucleophileClasses())
}

func (c NucleophileClass) IsValid() bool { return isMember(c, NucleophileClasses()) }

func (c *NucleophileClass) UnmarshalText(text []byte) error {
	v, err := ParseNucleophileClass(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// LeavingGroupQuality grades how readily the leaving group departs.
type LeavingGroupQuality string

const (
	LeavingGroupExcellent LeavingGroupQuality = "excellent"
	LeavingGroupGood      LeavingGroupQuality = "good"
	LeavingGroupModerate  LeavingGroupQuality = "moderate"
	LeavingGroupPoor      LeavingGroupQuality = "poor"
)

func LeavingGroupQualities() []LeavingGroupQuality {
	return []LeavingGroupQuality{
		LeavingGroupExcellent, LeavingGroupGood, LeavingGroupModerate, LeavingGroupPoor,
	}
}

func ParseLeavingGroupQuality(s string) (LeavingGroupQuality, error) {
	return parseEnum("leaving group quality", s, LeavingGroupQualities())
}

func (q LeavingGroupQuality) IsValid() bool { return isMember(q, LeavingGroupQualities()) }

func (q *LeavingGroupQuality) UnmarshalText(text []byte) error {
	v, err := ParseLeavingGroupQuality(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// SolventClass describes solvent polarity and proticity.
type SolventClass string

const (
	SolventPolarAprotic SolventClass = "polar-aprotic"
	SolventPolarProtic  SolventClass = "polar-protic"
	SolventNonpolar     SolventClass = "nonpolar"
)

func SolventClasses() []SolventClass {
	return []SolventClass{SolventPolarAprotic, SolventPolarProtic, SolventNonpolar}
}

func ParseSolventClass(s string) (SolventClass, error) {
	return parseEnum("solvent class", s, SolventClasses())
}

func (c SolventClass) IsValid() bool { return isMember(c, SolventClasses()) }

func (c *SolventClass) UnmarshalText(text []byte) error {
	v, err := ParseSolventClass(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TemperatureBand is a coarse reaction temperature.
type TemperatureBand string

const (
	TemperatureLow      TemperatureBand = "low"
	TemperatureRoom     TemperatureBand = "room"
	TemperatureElevated TemperatureBand = "elevated"
	TemperatureHigh     TemperatureBand = "high"
)

func TemperatureBands() []TemperatureBand {
	return []TemperatureBand{TemperatureLow, TemperatureRoom, TemperatureElevated, TemperatureHigh}
}

func ParseTemperatureBand(s string) (TemperatureBand, error) {
	return parseEnum("temperature band", s, TemperatureBands())
}

func (b TemperatureBand) IsValid() bool { return isMember(b, TemperatureBands()) }

func (b *TemperatureBand) UnmarshalText(text []byte) error {
	v, err := ParseTemperatureBand(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// ConditionSet is one selection on each of the five condition axes.
type ConditionSet struct {
	Substrate    SubstrateClass      `json:"substrate" yaml:"substrate"`
	Nucleophile  NucleophileClass    `json:"nucleophile" yaml:"nucleophile"`
	LeavingGroup LeavingGroupQuality `json:"leaving_group" yaml:"leaving_group"`
	Solvent      SolventClass        `json:"solvent" yaml:"solvent"`
	Temperature  TemperatureBand     `json:"temperature" yaml:"temperature"`
}

// Validate reports the first axis holding an undeclared value.
func (c ConditionSet) Validate() error {
	switch {
	case !c.Substrate.IsValid():
		return invalidAxis("substrate", string(c.Substrate))
	case !c.Nucleophile.IsValid():
		return invalidAxis("nucleophile", string(c.Nucleophile))
	case !c.LeavingGroup.IsValid():
		return invalidAxis("leaving_group", string(c.LeavingGroup))
	case !c.Solvent.IsValid():
		return invalidAxis("solvent", string(c.Solvent))
	case !c.Temperature.IsValid():
		return invalidAxis("temperature", string(c.Temperature))
	}
	return nil
}

// Key is the canonical cache key for the condition tuple.
func (c ConditionSet) Key() string {
	return strings.Join([]string{
		string(c.Substrate), string(c.Nucleophile), string(c.LeavingGroup),
		string(c.Solvent), string(c.Temperature),
	}, "|")
}

func invalidAxis(axis, value string) error {
	return errors.New(errors.ErrCodeInvalidCondition, "invalid "+axis).WithDetail("value=" + value)
}
