package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ProfileFile is a TOML analysis profile. Absent keys leave the current value alone.
//
//	[analysis]
//	low_hz = 0.01
//	high_hz = 0.1
//	order = 4
//	window_seconds = 60
type ProfileFile struct {
	Analysis AnalysisProfile `toml:"analysis"`
}

// AnalysisProfile maps the [analysis] table.
type AnalysisProfile struct {
	LowHz         *float64 `toml:"low_hz"`
	HighHz        *float64 `toml:"high_hz"`
	Order         *int     `toml:"order"`
	SampleRateHz  *float64 `toml:"sample_rate_hz"`
	WindowSeconds *int     `toml:"window_seconds"`
	Workers       *int     `toml:"workers"`
}

// LoadProfile reads a TOML profile from path. A missing file is not an error.
func LoadProfile(path string) (ProfileFile, error) {
	if path == "" {
		return ProfileFile{}, fmt.Errorf("profile path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ProfileFile{}, nil
		}
		return ProfileFile{}, fmt.Errorf("failed to stat profile: %w", err)
	}
	var profile ProfileFile
	meta, err := toml.DecodeFile(path, &profile)
	if err != nil {
		return ProfileFile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ProfileFile{}, fmt.Errorf("unknown profile key %q", undecoded[0].String())
	}
	return profile, nil
}

// Apply overrides the fields of a that the profile sets.
func (p ProfileFile) Apply(a *AnalysisConfig) {
	prof := p.Analysis
	if prof.LowHz != nil {
		a.LowHz = *prof.LowHz
	}
	if prof.HighHz != nil {
		a.HighHz = *prof.HighHz
	}
	if prof.Order != nil {
		a.FilterOrder = *prof.Order
	}
	if prof.SampleRateHz != nil {
		a.SampleRateHz = *prof.SampleRateHz
	}
	if prof.WindowSeconds != nil {
		a.WindowSeconds = *prof.WindowSeconds
	}
	if prof.Workers != nil {
		a.Workers = *prof.Workers
	}
}
