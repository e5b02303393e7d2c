package cache

import (
	"errors"
	"strings"

	"github.com/dom/sleeplog/internal/metrics"
)

func observe(key Key, err error) {
	result := "hit"
	switch {
	case errors.Is(err, ErrMiss):
		result = "miss"
	case err != nil:
		result = "error"
	}
	metrics.CacheLookups.WithLabelValues(family(key), result).Inc()
}

// family collapses per-week purposes so label cardinality stays bounded.
func family(key Key) string {
	if strings.HasPrefix(key.Purpose, PurposeWeekly) {
		return "weekly"
	}
	return key.Purpose
}
