package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// FrameFilename derives the canonical image filename for a frame index.
//
// Zero-padded to four digits: frame_0000.webp through frame_9999.webp.
func FrameFilename(index int) string {
	return fmt.Sprintf("frame_%04d.webp", index)
}

// ParseFrameFilename recovers the frame index from a canonical image
// filename. The second return is false for names that do not match.
func ParseFrameFilename(name string) (int, bool) {
	rest, found := strings.CutPrefix(name, "frame_")
	if !found {
		return 0, false
	}
	digits, found := strings.CutSuffix(rest, ".webp")
	if !found || len(digits) != 4 {
		return 0, false
	}
	// Atoi alone would admit a sign in the four-character window.
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

// ConfigKey returns the object key for a project's config document.
func ConfigKey(projectID string) string {
	return fmt.Sprintf("projects/%s/config.json", projectID)
}

// FrameKey returns the object key for a project's frame image.
func FrameKey(projectID string, index int) string {
	return fmt.Sprintf("projects/%s/%s", projectID, FrameFilename(index))
}

func configCacheKey(projectID string) string {
	return "config-" + projectID
}

func imageCacheKey(projectID string, index int) string {
	return fmt.Sprintf("image-%s-%d", projectID, index)
}

func imageCachePrefix(projectID string) string {
	return fmt.Sprintf("image-%s-", projectID)
}
