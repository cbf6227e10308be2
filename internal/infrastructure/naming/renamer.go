package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	disallowedChars = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// Renamer derives descriptive, filesystem-safe filenames from the top
// recognition label. The clock is injectable so tests get stable suffixes.
type Renamer struct {
	now func() time.Time
}

func NewRenamer() *Renamer {
	return &Renamer{now: time.Now}
}

func NewRenamerWithClock(now func() time.Time) *Renamer {
	return &Renamer{now: now}
}

// Rename builds "<normalized-label>-<6-digit-suffix>.<ext>". The suffix is
// the last six digits of the current epoch-millisecond timestamp, keeping
// same-labeled images in one batch apart.
func (r *Renamer) Rename(originalName, topLabel string) string {
	ext := extension(originalName)

	label := strings.ToLower(topLabel)
	label = disallowedChars.ReplaceAllString(label, "")
	label = whitespaceRuns.ReplaceAllString(strings.TrimSpace(label), "-")
	if label == "" {
		label = "image"
	}

	suffix := r.now().UnixMilli() % 1_000_000

	return fmt.Sprintf("%s-%06d.%s", label, suffix, ext)
}

func extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "bin"
	}
	return name[idx+1:]
}
