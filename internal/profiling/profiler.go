// Package profiling produces per-device distribution diagnostics for score matrices.
package profiling

import (
	"errors"

	"gocoherence/domain/core"
	"gocoherence/domain/epoch"
	domainstats "gocoherence/domain/stats"
)

// ProfileMatrix profiles every column of m in serial order. Devices with too few
// scores keep a profile carrying only Serial and Present.
func ProfileMatrix(m *epoch.ScoreMatrix) ([]domainstats.ScoreProfile, error) {
	profiles := make([]domainstats.ScoreProfile, m.Cols())
	for d, serial := range m.Serials {
		profile, err := ProfileScores(serial, m.Column(d))
		if err != nil && !errors.Is(err, core.ErrInsufficientData) {
			return nil, err
		}
		profiles[d] = profile
	}
	return profiles, nil
}
