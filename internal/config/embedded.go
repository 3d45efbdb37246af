package config

// Values injected at build time via ldflags. The API keys serve as defaults
// and can be overridden by environment variables or the config file.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/reelscan/reelscan/internal/config.EmbeddedTMDBKey=xxx' \
//	                   -X 'github.com/reelscan/reelscan/internal/config.EmbeddedOMDBKey=yyy' \
//	                   -X 'github.com/reelscan/reelscan/internal/config.Version=1.2.3'"
var (
	EmbeddedTMDBKey string
	EmbeddedOMDBKey string
	Version         = "dev"
)
