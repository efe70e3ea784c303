package config

const (
	defaultConfigPath     = "~/.config/mediaconv/config.toml"
	defaultBaseURL        = "http://localhost:8000"
	defaultTimeoutSeconds = 300
	defaultUserAgent      = "mediaconv/dev"
	defaultTokenFile      = "~/.config/mediaconv/token"
	defaultDownloadDir    = "~/Downloads/mediaconv"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	envBaseURL = "MEDIACONV_API_URL"
	envToken   = "MEDIACONV_TOKEN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Auth: Auth{
			TokenFile: defaultTokenFile,
		},
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
