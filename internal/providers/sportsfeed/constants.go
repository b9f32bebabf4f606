package sportsfeed

import "time"

const (
	providerName       = "sportsfeed"
	defaultBaseURL     = "https://api.sportsfeed.example.com/v2"
	defaultHTTPTimeout = 10 * time.Second
	defaultPerPage     = 100
	defaultMaxPages    = 10
)
