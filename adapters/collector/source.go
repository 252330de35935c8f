package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"gocoherence/adapters/jsonl"
	"gocoherence/domain/entropy"
	"gocoherence/internal"
	"gocoherence/internal/errors"
)

// Source loads device streams from a remote collector
type Source struct {
	config     Config
	serials    []string
	httpClient *http.Client
	logger     *internal.Logger
}

// NewSource creates a source. With no serials the device list is fetched from the collector.
func NewSource(config Config, serials []string, logger *internal.Logger) *Source {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig("").PageSize
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultConfig("").MaxPages
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig("").Timeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Source{
		config:     config,
		serials:    serials,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With("collector"),
	}
}

// Describe returns the collector URL
func (s *Source) Describe() string { return s.config.BaseURL }

// Load fetches every device concurrently. Malformed records are skipped; reads are
// returned in timestamp order.
func (s *Source) Load(ctx context.Context) (entropy.StreamSet, error) {
	startTime := time.Now()
	serials := s.serials
	if len(serials) == 0 {
		var err error
		if serials, err = s.fetchSerials(ctx); err != nil {
			return nil, err
		}
	}

	results := make([][]entropy.Read, len(serials))
	g, gctx := errgroup.WithContext(ctx)
	for i, serial := range serials {
		i, serial := i, serial
		g.Go(func() error {
			reads, err := s.fetchDevice(gctx, serial)
			if err != nil {
				return errors.DeviceError(serial, err)
			}
			results[i] = reads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	streams := make(entropy.StreamSet, len(serials))
	for i, serial := range serials {
		if len(results[i]) == 0 {
			s.logger.Warn("%s: no reads, skipping", serial)
			continue
		}
		streams[serial] = results[i]
	}
	s.logger.Info("fetched %d devices from %s in %.2fs", len(streams), s.config.BaseURL, time.Since(startTime).Seconds())
	return streams, nil
}

func (s *Source) fetchSerials(ctx context.Context) ([]string, error) {
	body, err := s.get(ctx, s.config.BaseURL+"/devices")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list collector devices")
	}
	list := gjson.ParseBytes(body)
	if list.Get("devices").Exists() {
		list = list.Get("devices")
	}
	if !list.IsArray() {
		return nil, errors.InvalidInput("collector device list is not an array")
	}

	var serials []string
	for _, item := range list.Array() {
		serial := item.String()
		if item.IsObject() {
			serial = item.Get("serial").String()
		}
		if serial != "" {
			serials = append(serials, serial)
		}
	}
	sort.Strings(serials)
	return serials, nil
}

func (s *Source) fetchDevice(ctx context.Context, serial string) ([]entropy.Read, error) {
	var reads []entropy.Read
	skipped := 0
	cursor := ""
	for page := 0; page < s.config.MaxPages; page++ {
		body, err := s.get(ctx, s.buildURL(serial, cursor))
		if err != nil {
			return nil, err
		}

		records := gjson.ParseBytes(body)
		if s.config.DataPath != "" {
			records = gjson.GetBytes(body, s.config.DataPath)
		}
		if !records.IsArray() {
			return nil, fmt.Errorf("data path %q is not an array", s.config.DataPath)
		}
		for _, record := range records.Array() {
			read, err := jsonl.ParseLine([]byte(record.Raw))
			if err != nil {
				skipped++
				continue
			}
			reads = append(reads, read)
		}

		cursor = extractNextCursor(body)
		if cursor == "" {
			break
		}
	}
	if skipped > 0 {
		s.logger.Debug("%s: skipped %d malformed records", serial, skipped)
	}

	sort.SliceStable(reads, func(i, j int) bool { return reads[i].Timestamp.Before(reads[j].Timestamp) })
	return reads, nil
}

// buildURL constructs one page request for a device
func (s *Source) buildURL(serial, cursor string) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(s.config.PageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return fmt.Sprintf("%s/devices/%s/reads?%s", s.config.BaseURL, url.PathEscape(serial), params.Encode())
}

func (s *Source) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range s.config.Headers {
		req.Header.Set(k, v)
	}
	switch s.config.AuthMethod {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	case "api_key":
		req.Header.Set("X-API-Key", s.config.AuthToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collector returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// extractNextCursor returns the continuation token, or "" on the last page
func extractNextCursor(body []byte) string {
	for _, field := range []string{"next_cursor", "cursor", "next", "continuation_token"} {
		if cursor := gjson.GetBytes(body, field); cursor.Exists() && cursor.String() != "" {
			return cursor.String()
		}
	}
	return ""
}
