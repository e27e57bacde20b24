package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors StructuredConfig for the JSON file source.
// Durations are accepted as strings like "2s" or "1m30s".
type StructuredJSONConfig struct {
	App struct {
		Version string `json:"version"`
	} `json:"app,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Sync struct {
		DebounceWindow  Duration `json:"debounce_window"`
		RetryCeiling    int      `json:"retry_ceiling"`
		BackoffBase     Duration `json:"backoff_base"`
		BackoffCap      Duration `json:"backoff_cap"`
		BatchSize       int      `json:"batch_size"`
		OnlineInterval  Duration `json:"online_interval"`
		OfflineInterval Duration `json:"offline_interval"`
		ProbeInterval   Duration `json:"probe_interval"`
		CacheTTL        Duration `json:"cache_ttl"`
	} `json:"sync,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Version: jsonCfg.App.Version,
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Sync: Sync{
			DebounceWindow:  time.Duration(jsonCfg.Sync.DebounceWindow),
			RetryCeiling:    jsonCfg.Sync.RetryCeiling,
			BackoffBase:     time.Duration(jsonCfg.Sync.BackoffBase),
			BackoffCap:      time.Duration(jsonCfg.Sync.BackoffCap),
			BatchSize:       jsonCfg.Sync.BatchSize,
			OnlineInterval:  time.Duration(jsonCfg.Sync.OnlineInterval),
			OfflineInterval: time.Duration(jsonCfg.Sync.OfflineInterval),
			ProbeInterval:   time.Duration(jsonCfg.Sync.ProbeInterval),
			CacheTTL:        time.Duration(jsonCfg.Sync.CacheTTL),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
