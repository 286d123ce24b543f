package config

import "path/filepath"

const (
	defaultConfigPath     = "~/.config/tis/config.toml"
	defaultServerName     = "Bokutachi"
	defaultServerURL      = "https://boku.tachi.ac"
	defaultClientID       = "CI18c4ebe4297a9e66960ad7b7bc88e91ace634ef8"
	stagingServerName     = "Bokutachi Staging"
	stagingServerURL      = "https://staging.bokutachi.xyz"
	stagingClientID       = "CI8c4eae44862e6d3b753eef2d2d859ac51d8c516b1"
	defaultRequestTimeout = 30
	defaultPollInterval   = 1
	defaultServiceName    = "TIS. v2.1.0"
	defaultUserAgent      = "tis/2.1.0"
	defaultUSCPlaytype    = "Controller"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Name:      defaultServerName,
			BaseURL:   defaultServerURL,
			ClientURL: defaultServerURL,
			ClientID:  defaultClientID,
		},
		USC: USC{
			Playtype: defaultUSCPlaytype,
		},
		Import: Import{
			FallbackDir:    filepath.Join(defaultDataDir(), "batch-manual"),
			RequestTimeout: defaultRequestTimeout,
			PollInterval:   defaultPollInterval,
			UserAgent:      defaultUserAgent,
			ServiceName:    defaultServiceName,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// StagingServer returns the server block used when staging is enabled.
func StagingServer() Server {
	return Server{
		Name:      stagingServerName,
		BaseURL:   stagingServerURL,
		ClientURL: stagingServerURL,
		ClientID:  stagingClientID,
		Staging:   true,
	}
}
