package server

import (
	"strconv"
	"strings"
)

const defaultHistoryLimit = 100

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseLimit defaults to defaultHistoryLimit; 0 means everything.
func parseLimit(value string) (int, error) {
	limit, err := parseOptionalInt(value)
	if err != nil || limit != nil && *limit < 0 {
		return 0, ErrInvalidRequest
	}
	if limit == nil {
		return defaultHistoryLimit, nil
	}
	return *limit, nil
}
