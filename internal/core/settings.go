package core

import (
	"errors"
	"math"
)

const (
	Preset503020 PresetType = "50-30-20"
	Preset504010 PresetType = "50-40-10"
	PresetCustom PresetType = "custom"
)

type (
	PresetType string

	CustomPercentages struct {
		Mandatory float64 `json:"mandatory"`
		Savings   float64 `json:"savings"`
		Remainder float64 `json:"remainder"`
	}

	// Settings holds the distribution preferences of a user.
	Settings struct {
		PresetType                  PresetType         `json:"presetType"`
		MandatoryExpensesPercentage float64            `json:"mandatoryExpensesPercentage"`
		DistributionRules           []DistributionRule `json:"distributionRules"`
		CustomPercentages           CustomPercentages  `json:"customPercentages"`
		SelectedSavingsForStats     []string           `json:"selectedSavingsForStats"`
	}
)

var (
	ErrInvalidPreset      = errors.New("invalid preset")
	ErrInvalidPercentages = errors.New("invalid percentages")
)

func DefaultSettings() Settings {
	return Settings{
		PresetType:                  Preset503020,
		MandatoryExpensesPercentage: 50,
		DistributionRules:           []DistributionRule{},
		CustomPercentages:           CustomPercentages{Mandatory: 50, Savings: 30, Remainder: 20},
		SelectedSavingsForStats:     []string{},
	}
}

func (p PresetType) Valid() bool {
	switch p {
	case Preset503020, Preset504010, PresetCustom:
		return true
	}
	return false
}

// MandatoryPercentage is the share of income recommended for mandatory
// expenses under the selected preset.
func (s Settings) MandatoryPercentage() float64 {
	switch s.PresetType {
	case Preset503020, Preset504010:
		return 50
	case PresetCustom:
		return s.CustomPercentages.Mandatory
	}
	return s.MandatoryExpensesPercentage
}

// SavingsPercentage is the share of income recommended for savings under
// the selected preset.
func (s Settings) SavingsPercentage() float64 {
	switch s.PresetType {
	case Preset503020:
		return 30
	case Preset504010:
		return 40
	case PresetCustom:
		return s.CustomPercentages.Savings
	}
	return 0
}

func (s Settings) Validate() error {
	if !s.PresetType.Valid() {
		return ErrInvalidPreset
	}
	if outOfRange(s.MandatoryExpensesPercentage) {
		return ErrInvalidPercentages
	}
	for _, r := range s.DistributionRules {
		if r.ID == "" {
			return ErrEmptyID
		}
		if outOfRange(r.Percentage) {
			return ErrInvalidPercentages
		}
	}
	if s.PresetType == PresetCustom {
		c := s.CustomPercentages
		if outOfRange(c.Mandatory) || outOfRange(c.Savings) || outOfRange(c.Remainder) {
			return ErrInvalidPercentages
		}
		if math.Abs(c.Mandatory+c.Savings+c.Remainder-100) > 0.001 {
			return ErrInvalidPercentages
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.DistributionRules = make([]DistributionRule, len(s.DistributionRules))
	for i, r := range s.DistributionRules {
		out.DistributionRules[i] = r.Clone()
	}
	out.SelectedSavingsForStats = append([]string{}, s.SelectedSavingsForStats...)
	return out
}

func outOfRange(p float64) bool {
	return p < 0 || p > 100 || math.IsNaN(p)
}
