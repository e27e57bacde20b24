package config

import (
	"flag"
	"time"
)

// parseFlags parses all configuration flags from args (normally os.Args[1:]).
//
// Flags:
//
//	-a remote service base URL
//	-d local SQLite database path
//	-c/-config json file path with configs
//	-request-timeout outbound request timeout (e.g., "15s")
//	-debounce batch quiet period (e.g., "2s")
//	-retry-ceiling total delivery attempts per operation
//	-sync-interval periodic drain interval while online
func parseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("fieldledger", flag.ContinueOnError)

	var (
		remoteAddress  string
		databaseDSN    string
		jsonConfigPath string
		requestTimeout time.Duration
		debounceWindow time.Duration
		retryCeiling   int
		onlineInterval time.Duration
	)

	fs.StringVar(&remoteAddress, "a", "", "Remote service base URL")
	fs.StringVar(&databaseDSN, "d", "", "Local database path")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	fs.DurationVar(&debounceWindow, "debounce", 0, "Batch quiet period (e.g., 2s)")
	fs.IntVar(&retryCeiling, "retry-ceiling", 0, "Delivery attempts per operation")
	fs.DurationVar(&onlineInterval, "sync-interval", 0, "Periodic drain interval while online")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		Adapter: Adapter{
			HTTPAddress:    remoteAddress,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Sync: Sync{
			DebounceWindow: debounceWindow,
			RetryCeiling:   retryCeiling,
			OnlineInterval: onlineInterval,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}
