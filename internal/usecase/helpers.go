package usecase

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const namePrefix = "backup_"

var nameReplacer = strings.NewReplacer(":", "-", ".", "-")

// ArtifactName builds the filesystem-safe stem backup_<timestamp>_<id>.
func ArtifactName(timestamp, id string) string {
	return namePrefix + nameReplacer.Replace(timestamp) + "_" + id
}

// extractTimestamp recovers the creation time embedded in an artifact name,
// e.g. backup_2026-10-19T02-00-00-000Z_<id>.
func extractTimestamp(name string) (time.Time, error) {
	rest, ok := strings.CutPrefix(name, namePrefix)
	if !ok || len(rest) < 24 || rest[23] != 'Z' {
		return time.Time{}, fmt.Errorf("invalid artifact name format: %s", name)
	}

	t, err := time.Parse("2006-01-02T15-04-05", rest[:19])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid artifact name format: %w", err)
	}
	millis, err := strconv.Atoi(rest[20:23])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid artifact name format: %w", err)
	}
	return t.Add(time.Duration(millis) * time.Millisecond), nil
}

// canonicalJSON normalizes v through a decode cycle so that Go numeric types and map
// ordering do not affect comparison. Numbers keep their literal text, so values that
// differ only past float64 precision still compare unequal.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var normalized any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&normalized); err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}
