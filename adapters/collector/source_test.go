package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/internal"
	"gocoherence/internal/errors"
)

var base = time.Date(2026, 2, 15, 7, 30, 0, 0, time.UTC)

func record(offset time.Duration, hex string) map[string]interface{} {
	return map[string]interface{}{"ts": base.Add(offset).Format(time.RFC3339Nano), "hex": hex}
}

// newCollector serves device reads in pages of limit records, cursor = next index.
func newCollector(t *testing.T, devices map[string][]map[string]interface{}, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		var serials []string
		for serial := range devices {
			serials = append(serials, serial)
		}
		_ = json.NewEncoder(w).Encode(serials)
	})
	mux.HandleFunc("/devices/", func(w http.ResponseWriter, r *http.Request) {
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		serial := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/devices/"), "/reads")
		records, ok := devices[serial]
		if !ok {
			http.NotFound(w, r)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		start, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
		end := start + limit
		next := ""
		if end < len(records) {
			next = strconv.Itoa(end)
		} else {
			end = len(records)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"reads": records[start:end], "next_cursor": next})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(&strings.Builder{}, internal.LogLevelError)
}

func TestSource_LoadPaginatesAndDiscoversDevices(t *testing.T) {
	server := newCollector(t, map[string][]map[string]interface{}{
		"A": {
			record(0, "ff"), record(500*time.Millisecond, "00"), {"ts": "bad", "hex": "ff"},
			record(time.Second, "0f"), record(1500*time.Millisecond, "f0"),
		},
		"B": {record(2*time.Second, "aa"), record(0, "55")},
	}, "")

	config := DefaultConfig(server.URL + "/")
	config.PageSize = 2
	src := NewSource(config, nil, quietLogger())
	assert.Equal(t, server.URL, src.Describe())

	streams, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, streams.Serials())
	assert.Len(t, streams["A"], 4, "malformed record skipped")
	assert.Equal(t, []byte{0xf0}, streams["A"][3].Chunk)

	require.Len(t, streams["B"], 2)
	assert.True(t, streams["B"][0].Timestamp.Equal(base), "reads sorted by time")
}

func TestSource_ExplicitSerialsAndAuth(t *testing.T) {
	server := newCollector(t, map[string][]map[string]interface{}{
		"A": {record(0, "ff")},
		"B": {record(0, "00")},
	}, "secret")

	config := DefaultConfig(server.URL)
	config.AuthMethod = "bearer"
	config.AuthToken = "secret"
	streams, err := NewSource(config, []string{"B"}, quietLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, streams.Serials())

	config.AuthToken = "wrong"
	_, err = NewSource(config, []string{"B"}, quietLogger()).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeDeviceError, errors.GetCode(err))
	assert.Contains(t, err.Error(), "401")
}

func TestSource_UnknownDevice(t *testing.T) {
	server := newCollector(t, map[string][]map[string]interface{}{"A": {record(0, "ff")}}, "")
	_, err := NewSource(DefaultConfig(server.URL), []string{"Z"}, quietLogger()).Load(context.Background())
	assert.Error(t, err)
}

func TestSource_EmptyDeviceIsDropped(t *testing.T) {
	server := newCollector(t, map[string][]map[string]interface{}{
		"A":     {record(0, "ff")},
		"EMPTY": {},
	}, "")
	streams, err := NewSource(DefaultConfig(server.URL), nil, quietLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, streams.Serials())
}

func TestExtractNextCursor(t *testing.T) {
	assert.Equal(t, "abc", extractNextCursor([]byte(`{"next": "abc"}`)))
	assert.Equal(t, "", extractNextCursor([]byte(`{"next_cursor": ""}`)))
	assert.Equal(t, "", extractNextCursor([]byte(`[]`)))
}
