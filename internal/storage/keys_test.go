package storage

import (
	"fmt"
	"testing"
)

func TestFrameFilename(t *testing.T) {
	t.Run("Zero Padding", func(t *testing.T) {
		cases := map[int]string{
			0:    "frame_0000.webp",
			2:    "frame_0002.webp",
			42:   "frame_0042.webp",
			999:  "frame_0999.webp",
			9999: "frame_9999.webp",
		}
		for index, want := range cases {
			if got := FrameFilename(index); got != want {
				t.Errorf("FrameFilename(%d) = %q, want %q", index, got, want)
			}
		}
	})

	t.Run("Collision Free", func(t *testing.T) {
		seen := make(map[string]int, 10000)
		for i := 0; i < 10000; i++ {
			name := FrameFilename(i)
			if prev, dup := seen[name]; dup {
				t.Fatalf("indices %d and %d both derive %q", prev, i, name)
			}
			seen[name] = i
		}
	})
}

func TestKeys(t *testing.T) {
	if got := ConfigKey("demo"); got != "projects/demo/config.json" {
		t.Errorf("unexpected config key %q", got)
	}
	if got := FrameKey("demo", 7); got != "projects/demo/frame_0007.webp" {
		t.Errorf("unexpected frame key %q", got)
	}
}

func TestCacheKeys(t *testing.T) {
	if configCacheKey("p1") != "config-p1" {
		t.Error("unexpected config cache key")
	}
	if imageCacheKey("p1", 3) != "image-p1-3" {
		t.Error("unexpected image cache key")
	}
	if fmt.Sprintf("%s3", imageCachePrefix("p1")) != imageCacheKey("p1", 3) {
		t.Error("image cache prefix must prefix exact keys")
	}
}

func TestParseFrameFilename(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		for _, index := range []int{0, 7, 42, 9999} {
			got, ok := ParseFrameFilename(FrameFilename(index))
			if !ok || got != index {
				t.Errorf("ParseFrameFilename(FrameFilename(%d)) = %d, %v", index, got, ok)
			}
		}
	})

	t.Run("Rejects Malformed Names", func(t *testing.T) {
		bad := []string{
			"frame_0001.png",
			"frame_1.webp",
			"frame_00001.webp",
			"img_0001.webp",
			"frame_abcd.webp",
			"frame_+123.webp",
			"frame_-001.webp",
			"frame_ 123.webp",
			"config.json",
			"",
		}
		for _, name := range bad {
			if _, ok := ParseFrameFilename(name); ok {
				t.Errorf("expected %q rejected", name)
			}
		}
	})
}
