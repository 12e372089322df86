package client

import (
	"fmt"
	"strings"
)

// Clip is one segment of the merged output, in concatenation order
type Clip struct {
	Title    string
	Duration float64
}

// FilterBuilder assembles the drawtext chain that burns the per-clip counter
// and title into the concatenated video.
type FilterBuilder struct {
	fontFile string
}

func NewFilterBuilder(fontFile string) *FilterBuilder {
	return &FilterBuilder{fontFile: fontFile}
}

// Build returns one -vf filter string covering all clips. Each clip gets a
// "index/total" counter top-right and its title bottom-center, both enabled
// only for that clip's time window in the concatenated timeline.
func (b *FilterBuilder) Build(clips []Clip) string {
	filters := make([]string, 0, len(clips))
	offset := 0.0

	for i, clip := range clips {
		filters = append(filters, b.clipFilter(i+1, len(clips), clip.Title, offset, clip.Duration))
		offset += clip.Duration
	}

	return strings.Join(filters, ",")
}

func (b *FilterBuilder) clipFilter(index, total int, title string, offset, duration float64) string {
	window := fmt.Sprintf("enable='between(t,%g,%g)'", offset, offset+duration)

	counter := fmt.Sprintf(
		"drawtext=text='%d/%d':fontfile=%s:fontsize=60:fontcolor=white:"+
			"x=w-tw-40:y=40:box=1:boxcolor=black@0.6:boxborderw=10:%s",
		index, total, b.fontFile, window,
	)

	titleFilter := fmt.Sprintf(
		"drawtext=text='%s':fontfile=%s:fontsize=48:fontcolor=white:"+
			"x=(w-text_w)/2:y=h-150:box=1:boxcolor=black@0.7:boxborderw=15:%s",
		escapeDrawText(title), b.fontFile, window,
	)

	return counter + "," + titleFilter
}

// escapeDrawText neutralizes the characters drawtext treats specially inside
// a quoted text value: single quotes and option-separator colons.
func escapeDrawText(s string) string {
	s = strings.ReplaceAll(s, "'", `'\\\''`)
	s = strings.ReplaceAll(s, ":", `\:`)
	return s
}
