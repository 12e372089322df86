package client

import (
	"strings"
	"testing"
)

const testFont = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

func TestBuild_SingleClip(t *testing.T) {
	b := NewFilterBuilder(testFont)

	filter := b.Build([]Clip{{Title: "Only clip", Duration: 12.5}})

	if !strings.Contains(filter, "text='1/1'") {
		t.Errorf("expected counter 1/1 in filter, got %s", filter)
	}
	if !strings.Contains(filter, "enable='between(t,0,12.5)'") {
		t.Errorf("expected window starting at 0, got %s", filter)
	}
	if !strings.Contains(filter, "text='Only clip'") {
		t.Errorf("expected title overlay, got %s", filter)
	}
	if !strings.Contains(filter, testFont) {
		t.Errorf("expected font file in filter, got %s", filter)
	}
}

func TestBuild_CounterOrderAndOffsets(t *testing.T) {
	b := NewFilterBuilder(testFont)

	filter := b.Build([]Clip{
		{Title: "first", Duration: 3.5},
		{Title: "second", Duration: 4.5},
		{Title: "third", Duration: 2},
	})

	// Counters run 1..N in input order
	i1 := strings.Index(filter, "text='1/3'")
	i2 := strings.Index(filter, "text='2/3'")
	i3 := strings.Index(filter, "text='3/3'")
	if i1 < 0 || i2 < 0 || i3 < 0 {
		t.Fatalf("missing counters in filter: %s", filter)
	}
	if !(i1 < i2 && i2 < i3) {
		t.Errorf("counters out of order: %d %d %d", i1, i2, i3)
	}

	// Windows accumulate from probed durations
	for _, window := range []string{
		"enable='between(t,0,3.5)'",
		"enable='between(t,3.5,8)'",
		"enable='between(t,8,10)'",
	} {
		if !strings.Contains(filter, window) {
			t.Errorf("expected %s in filter, got %s", window, filter)
		}
	}
}

func TestBuild_TitlesInInputOrder(t *testing.T) {
	b := NewFilterBuilder(testFont)

	filter := b.Build([]Clip{
		{Title: "alpha", Duration: 1},
		{Title: "beta", Duration: 1},
	})

	if strings.Index(filter, "text='alpha'") > strings.Index(filter, "text='beta'") {
		t.Errorf("titles out of input order: %s", filter)
	}
}

func TestEscapeDrawText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"single quote", "it's fine", `it'\\\''s fine`},
		{"colon", "note: read", `note\: read`},
		{"both", "a: b's", `a\: b'\\\''s`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeDrawText(tt.in); got != tt.want {
				t.Errorf("escapeDrawText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
