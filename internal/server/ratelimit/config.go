package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/resume-optimizer/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (prefix match when it ends in "/")
	Method string        // HTTP method
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// FromConfig builds the limiter configuration from the service settings.
func FromConfig(rl config.RateLimitConfig) *Config {
	if !rl.Enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    rl.DefaultLimit,
		DefaultWindow:   rl.DefaultWindow,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       ipSet(rl.Whitelist),
		Blacklist:       ipSet(rl.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(rl.AnalyzeLimit, rl.OptimizeLimit),
	}
}

// DefaultEndpointConfigs limits the two model-backed endpoints per hour with
// a small burst. Everything else falls back to the default limit.
func DefaultEndpointConfigs(analyzePerHour, optimizePerHour int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/analyze", Method: http.MethodPost, Limit: analyzePerHour, Window: time.Hour, Burst: burst(analyzePerHour)},
		{Path: "/optimize", Method: http.MethodPost, Limit: optimizePerHour, Window: time.Hour, Burst: burst(optimizePerHour)},
	}
}

func burst(limit int) int {
	return max(1, limit/10)
}

// ipSet turns a list of addresses into a lookup set, skipping blanks.
func ipSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		for _, part := range strings.Split(ip, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result[part] = true
			}
		}
	}
	return result
}
