package search

import "errors"

var (
	ErrMissingAPIKey       = errors.New("search: API key is required")
	ErrUnsupportedProvider = errors.New("search: unsupported provider")
	ErrProviderUnavailable = errors.New("search: provider is currently unavailable")
)
