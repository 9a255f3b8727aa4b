package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"
)

var (
	// Counter for sequential tag uniqueness within one process
	tagCounter uint64
)

// tagPattern matches filesystem-safe trial tags. Tags namespace every
// derived artifact path, so separators and whitespace are rejected.
var tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// GenerateTrialTag mints a unique trial tag. Tags combine a timestamp,
// a process-local counter, and random bytes so that concurrent trials
// never collide; a collision is treated as an operator error, never
// resolved by the pipeline.
func GenerateTrialTag() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	count := atomic.AddUint64(&tagCounter, 1)

	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("trial-%s-%d", timestamp, count)
	}
	return fmt.Sprintf("trial-%s-%d-%s", timestamp, count, hex.EncodeToString(b))
}

// ValidTag reports whether a caller-supplied tag is filesystem-safe.
func ValidTag(tag string) bool {
	return tagPattern.MatchString(tag)
}
