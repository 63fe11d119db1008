package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func strptr(s string) *string { return &s }

func TestNewProjectConfig(t *testing.T) {
	cfg := NewProjectConfig(5, 12, 1.7778)

	if cfg.TotalFrames != 5 {
		t.Errorf("expected 5 total frames, got %d", cfg.TotalFrames)
	}
	if len(cfg.Frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(cfg.Frames))
	}
	for i, frame := range cfg.Frames {
		if frame.Index != i {
			t.Errorf("frame %d has index %d", i, frame.Index)
		}
		if frame.Taken || frame.Filename != nil || frame.Note != nil {
			t.Errorf("frame %d should start untaken with nil filename and note", i)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("new config should validate, got %v", err)
	}
}

func TestProjectConfigValidate(t *testing.T) {
	t.Run("Rejects Zero TotalFrames", func(t *testing.T) {
		cfg := &ProjectConfig{TotalFrames: 0, FPS: 12, AspectRatio: 1.5}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for zero totalFrames")
		}
	})

	t.Run("Rejects Frame Count Mismatch", func(t *testing.T) {
		cfg := NewProjectConfig(3, 12, 1.5)
		cfg.Frames = cfg.Frames[:2]
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for frame count mismatch")
		}
	})

	t.Run("Rejects Non-Contiguous Indices", func(t *testing.T) {
		cfg := NewProjectConfig(3, 12, 1.5)
		cfg.Frames[2].Index = 7
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error for bad index")
		}
		if !strings.Contains(err.Error(), "index") {
			t.Errorf("expected index error, got %v", err)
		}
	})

	t.Run("Rejects Taken Without Filename", func(t *testing.T) {
		cfg := NewProjectConfig(3, 12, 1.5)
		cfg.Frames[1].Taken = true
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for taken frame without filename")
		}
	})

	t.Run("Rejects Filename Without Taken", func(t *testing.T) {
		cfg := NewProjectConfig(3, 12, 1.5)
		cfg.Frames[1].Filename = strptr("frame_0001.webp")
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for filename on untaken frame")
		}
	})

	t.Run("Note Does Not Affect Validity", func(t *testing.T) {
		cfg := NewProjectConfig(3, 12, 1.5)
		cfg.Frames[0].Note = strptr("hold the pose")
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})
}

func TestTakenCount(t *testing.T) {
	cfg := NewProjectConfig(4, 12, 1.5)
	if cfg.TakenCount() != 0 {
		t.Errorf("expected 0, got %d", cfg.TakenCount())
	}

	cfg.Frames[1].Taken = true
	cfg.Frames[1].Filename = strptr("frame_0001.webp")
	cfg.Frames[3].Taken = true
	cfg.Frames[3].Filename = strptr("frame_0003.webp")

	if cfg.TakenCount() != 2 {
		t.Errorf("expected 2, got %d", cfg.TakenCount())
	}
}

func TestProjectConfigJSON(t *testing.T) {
	t.Run("Wire Field Names", func(t *testing.T) {
		cfg := NewProjectConfig(1, 24, 1.7778)
		data, err := json.Marshal(cfg)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		for _, field := range []string{`"totalFrames"`, `"fps"`, `"aspectRatio"`, `"frames"`, `"index"`, `"taken"`, `"filename"`, `"note"`} {
			if !strings.Contains(string(data), field) {
				t.Errorf("expected JSON to contain %s, got %s", field, data)
			}
		}
	})

	t.Run("Untaken Frame Serializes Null Fields", func(t *testing.T) {
		cfg := NewProjectConfig(1, 12, 1.5)
		data, err := json.Marshal(cfg.Frames[0])
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if !strings.Contains(string(data), `"filename":null`) {
			t.Errorf("expected null filename, got %s", data)
		}
		if !strings.Contains(string(data), `"note":null`) {
			t.Errorf("expected null note, got %s", data)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		cfg := NewProjectConfig(2, 12, 1.5)
		cfg.Frames[0].Taken = true
		cfg.Frames[0].Filename = strptr("frame_0000.webp")
		cfg.Frames[1].Note = strptr("tilt camera left")

		data, err := json.Marshal(cfg)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var decoded ProjectConfig
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}

		if decoded.TotalFrames != 2 || decoded.FPS != 12 {
			t.Errorf("unexpected decoded config: %+v", decoded)
		}
		if decoded.Frames[0].Filename == nil || *decoded.Frames[0].Filename != "frame_0000.webp" {
			t.Error("filename lost in round trip")
		}
		if decoded.Frames[1].Note == nil || *decoded.Frames[1].Note != "tilt camera left" {
			t.Error("note lost in round trip")
		}
	})
}
