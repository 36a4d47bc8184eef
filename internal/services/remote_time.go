package services

import (
	"fmt"
	"strings"
	"time"
)

// Store timestamps come either with an offset or as naive GMT values
var remoteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseRemoteTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range remoteTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func parseOptionalRemoteTime(value *string) *time.Time {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	t, err := parseRemoteTime(*value)
	if err != nil {
		return nil
	}
	return &t
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
