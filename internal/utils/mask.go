package utils

import (
	"fmt"
	"path/filepath"
)

// MaskSecret hides a secret for logging while still flagging empty, default
// and suspiciously short values.
func MaskSecret(secret, defaultValue string) string {
	switch {
	case secret == "":
		return "--- EMPTY ---"
	case defaultValue != "" && secret == defaultValue:
		return "*** DEFAULT VALUE (!!! WARNING: change before production !!!) ***"
	case len(secret) < 8:
		return fmt.Sprintf("*** MASKED (short: %d chars) ***", len(secret))
	default:
		return "*** MASKED ***"
	}
}

// DescribeStoreLocation renders where the log store lives for a driver.
func DescribeStoreLocation(driver, dir, name string) string {
	switch driver {
	case "memory", "none", "disabled":
		return "(in-memory only)"
	}
	if name == ":memory:" {
		return fmt.Sprintf("%s in-memory database", driver)
	}
	return filepath.Join(dir, name)
}
