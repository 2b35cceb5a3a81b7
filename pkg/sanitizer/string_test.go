package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "basic trim",
			input: "  hello  ",
			want:  "hello",
		},
		{
			name:  "multiple spaces",
			input: "hello    world",
			want:  "hello world",
		},
		{
			name:  "tabs and newlines",
			input: "hello\t\nworld",
			want:  "hello world",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve special characters",
			input: " Café & Spa™ ",
			want:  "Café & Spa™",
		},
		{
			name:  "hebrew characters",
			input: " חדר ישיבות ",
			want:  "חדר ישיבות",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrimAndNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"  Sprint   planning  ",
		"\tWeekly\nsync\t",
		"already clean",
	}

	for _, input := range inputs {
		once := TrimAndNormalize(input)
		twice := TrimAndNormalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Quarterly review  ", "Quarterly review"},
		{"collapse inner whitespace", "Design\t\treview", "Design review"},
		{"case preserved", "1:1 with CTO", "1:1 with CTO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEquipmentTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercased", "Whiteboard", "whiteboard"},
		{"trimmed and lowercased", "  Video Conferencing  ", "video conferencing"},
		{"empty stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEquipmentTag(tt.input); got != tt.want {
				t.Errorf("NormalizeEquipmentTag(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPipeline_Apply(t *testing.T) {
	p := Pipeline{
		TrimAndNormalize,
		NormalizeEquipmentTag,
	}

	if got := p.Apply("  HDMI   Cable "); got != "hdmi cable" {
		t.Errorf("expected 'hdmi cable', got %q", got)
	}
}
