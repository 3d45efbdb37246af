package metadata

import (
	"fmt"
	"strings"
)

// IntSetting reads an integer setting with a default.
type IntSetting interface {
	GetInt(key string, def int) int
}

// RetryPolicy bounds the number of temporary-failure retries per media type
// and scanner.
type RetryPolicy struct {
	settings IntSetting
}

// NewRetryPolicy creates a retry policy backed by settings.
func NewRetryPolicy(settings IntSetting) *RetryPolicy {
	return &RetryPolicy{settings: settings}
}

// MaxRetries returns the retry budget for a scanner and media type.
func (p *RetryPolicy) MaxRetries(mediaType MediaType, scanner string) int {
	if p.settings == nil {
		return 0
	}
	key := fmt.Sprintf("scanner.%s.maxRetries.%s", strings.ToLower(scanner), mediaType)
	return p.settings.GetInt(key, 0)
}

// Decide returns RETRY while retries is below the budget and ERROR once it
// is spent.
func (p *RetryPolicy) Decide(mediaType MediaType, scanner string, retries int) ScanResult {
	if retries < p.MaxRetries(mediaType, scanner) {
		return ScanRetry
	}
	return ScanError
}
