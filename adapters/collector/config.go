package collector

import "time"

// Config describes a remote collector that serves recorded device reads over HTTP.
//
// Expected endpoints:
//
//	GET {BaseURL}/devices                         -> ["QWR4A003", ...] or [{"serial": "..."}]
//	GET {BaseURL}/devices/{serial}/reads?limit=N  -> {"reads": [{"ts": ..., "hex": ...}], "next_cursor": "..."}
type Config struct {
	BaseURL    string            `json:"base_url"`
	DataPath   string            `json:"data_path"` // gjson path of the read array; "" means the top-level value
	PageSize   int               `json:"page_size"`
	MaxPages   int               `json:"max_pages"` // per device; guards against a cursor loop
	Timeout    time.Duration     `json:"timeout"`
	AuthMethod string            `json:"auth_method"` // "", "bearer" or "api_key"
	AuthToken  string            `json:"-"`
	Headers    map[string]string `json:"headers"`
}

// DefaultConfig returns defaults for a collector at baseURL
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:  baseURL,
		DataPath: "reads",
		PageSize: 5000,
		MaxPages: 10000,
		Timeout:  30 * time.Second,
	}
}
