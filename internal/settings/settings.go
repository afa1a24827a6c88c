// Package settings holds the user-editable bot settings: watched symbols,
// strategy profile, polling interval, vote toggles and paper trading.
//
// Settings are read from a YAML file, may be edited at runtime over the API,
// and are optionally mirrored to Redis. Readers always get a private copy.
package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"trading-signalbot/internal/execution"
	"trading-signalbot/internal/model"
)

// Strategy profiles.
const (
	ProfileScalp    = "scalp"
	ProfileIntraday = "intraday"
	ProfileSwing    = "swing"
)

// BarLimit is how many bars are fetched per evaluation.
const BarLimit = 240

// DefaultBaseInterval is the polling interval in seconds.
const DefaultBaseInterval = 900

var profileTimeframes = map[string]string{
	ProfileScalp:    "1m",
	ProfileIntraday: "5m",
	ProfileSwing:    "1h",
}

// ProfileParams returns the bar timeframe and bar count for profile. Unknown
// profiles use swing.
func ProfileParams(profile string) (timeframe string, limit int) {
	tf, ok := profileTimeframes[strings.ToLower(strings.TrimSpace(profile))]
	if !ok {
		tf = profileTimeframes[ProfileSwing]
	}
	return tf, BarLimit
}

// RiskPercent is a paper allocation percentage. It accepts a number or a
// string in YAML and JSON; anything unparseable becomes the default.
type RiskPercent float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RiskPercent) UnmarshalYAML(node *yaml.Node) error {
	*r = RiskPercent(execution.ParseRiskPct(node.Value))
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RiskPercent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(b)
	}
	*r = RiskPercent(execution.ParseRiskPct(s))
	return nil
}

// Paper configures the trading simulator.
type Paper struct {
	Enabled      bool        `json:"enabled" yaml:"enabled"`
	RiskPct      RiskPercent `json:"risk_pct" yaml:"risk_pct"`
	StartBalance float64     `json:"start_balance" yaml:"start_balance"`
}

// Settings is the full set of user settings.
type Settings struct {
	Symbols      []string             `json:"symbols" yaml:"symbols"`
	Profile      string               `json:"profile" yaml:"profile"`
	BaseInterval int                  `json:"interval" yaml:"interval"` // seconds
	AutoMessage  bool                 `json:"auto_message" yaml:"auto_message"`
	Votes        model.VoteEnablement `json:"votes" yaml:"votes"`
	Paper        Paper                `json:"paper" yaml:"paper"`
	Signature    string               `json:"signature" yaml:"signature"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Symbols:      []string{},
		Profile:      ProfileSwing,
		BaseInterval: DefaultBaseInterval,
		AutoMessage:  true,
		Votes:        model.AllVotesEnabled(),
		Paper: Paper{
			RiskPct:      execution.DefaultRiskPct,
			StartBalance: execution.DefaultStartBalance,
		},
	}
}

// Normalize replaces invalid values with defaults and canonicalises symbols.
func (s Settings) Normalize() Settings {
	out := s.Clone()

	seen := make(map[string]bool, len(out.Symbols))
	syms := make([]string, 0, len(out.Symbols))
	for _, sym := range out.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		syms = append(syms, sym)
	}
	out.Symbols = syms

	out.Profile = strings.ToLower(strings.TrimSpace(out.Profile))
	if _, ok := profileTimeframes[out.Profile]; !ok {
		out.Profile = ProfileSwing
	}
	if out.BaseInterval <= 0 {
		out.BaseInterval = DefaultBaseInterval
	}
	out.Paper.RiskPct = RiskPercent(execution.ClampRiskPct(float64(out.Paper.RiskPct)))
	if !(out.Paper.StartBalance > 0) {
		out.Paper.StartBalance = execution.DefaultStartBalance
	}
	return out
}

// Validate reports settings that Normalize would have to change.
func (s Settings) Validate() error {
	if _, ok := profileTimeframes[strings.ToLower(s.Profile)]; !ok {
		return fmt.Errorf("unknown profile %q", s.Profile)
	}
	if s.BaseInterval <= 0 {
		return fmt.Errorf("interval must be positive, got %d", s.BaseInterval)
	}
	return nil
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.Symbols = append([]string(nil), s.Symbols...)
	if out.Symbols == nil {
		out.Symbols = []string{}
	}
	return out
}

// Timeframe returns the bar timeframe for the configured profile.
func (s Settings) Timeframe() string {
	tf, _ := ProfileParams(s.Profile)
	return tf
}
