package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// ParseMaintenanceDate принимает дату ("2025-01-10") или дату со временем
// в RFC 3339. Дата без времени трактуется как полночь UTC.
func ParseMaintenanceDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("пустая дата")
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("дата %q должна быть в формате YYYY-MM-DD или RFC 3339", value)
}

func FormatDateTime(t time.Time) string {
	return t.Local().Format(DateTimeLayout)
}
