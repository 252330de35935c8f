package api

import (
	"path/filepath"
	"strings"

	"gocoherence/adapters/hexlog"
	"gocoherence/adapters/jsonl"
	"gocoherence/internal"
	"gocoherence/internal/errors"
	"gocoherence/ports"
)

// Recording formats accepted by POST /api/reports
const (
	FormatHex   = "hex"
	FormatJSONL = "jsonl"
)

// SourceFactory resolves a session name to a stream source
type SourceFactory func(session, format string) (ports.StreamSourcePort, error)

// DataDirSources serves session directories below root. Names may not leave root.
func DataDirSources(root string, workers int, logger *internal.Logger) SourceFactory {
	return func(session, format string) (ports.StreamSourcePort, error) {
		session = strings.TrimSpace(session)
		if session == "" {
			return nil, errors.InvalidInput("session directory is required")
		}
		clean := filepath.Clean(session)
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return nil, errors.InvalidInput("session directory must be relative to the data directory")
		}
		dir := filepath.Join(root, clean)

		switch format {
		case "", FormatHex:
			return hexlog.NewDirectorySource(dir, workers, logger), nil
		case FormatJSONL:
			return jsonl.NewDirectorySource(dir, workers, logger), nil
		default:
			return nil, errors.InvalidInput("unknown recording format " + format)
		}
	}
}
