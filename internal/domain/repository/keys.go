package repository

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// DataType tags the cached payload kind. It is the first segment of every
// cache key and selects the TTL applied on store.
type DataType string

const (
	DataQuote     DataType = "quote"
	DataChain     DataType = "chain"
	DataHistory   DataType = "history"
	DataSentiment DataType = "sentiment"
)

// IsValidInterval returns true if s is a supported history interval.
func IsValidInterval(s string) bool {
	switch s {
	case "daily", "weekly", "monthly":
		return true
	default:
		return false
	}
}

// NormalizeInterval converts a raw string to a valid interval (or default).
func NormalizeInterval(s string) string {
	if IsValidInterval(s) {
		return s
	}
	return "daily"
}

// CacheKey builds `{data_type}:{ticker}:{hash}` from canonicalized params.
// Params are sorted by name so semantically identical requests collide on the
// same key regardless of argument ordering.
func CacheKey(dt DataType, ticker string, params map[string]string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if len(params) == 0 {
		return fmt.Sprintf("%s:%s:%s", dt, ticker, hashParams(""))
	}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, k := range names {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strings.TrimSpace(params[k]))
		sb.WriteByte('&')
	}
	return fmt.Sprintf("%s:%s:%s", dt, ticker, hashParams(sb.String()))
}

func hashParams(canonical string) string {
	sum := sha1.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])[:12]
}
