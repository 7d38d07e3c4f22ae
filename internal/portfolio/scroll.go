package portfolio

import "math"

// Track describes the horizontal scroll strip that slides the project list
// sideways as the page scrolls vertically.
type Track struct {
	ViewportWidth float64
	ContainerLeft float64
	Items         int
}

// NewTrack returns a Track sized for the full catalog.
func NewTrack(viewportWidth, containerLeft float64) Track {
	return Track{
		ViewportWidth: viewportWidth,
		ContainerLeft: containerLeft,
		Items:         len(catalog),
	}
}

// Offset maps vertical scroll progress onto the strip's horizontal
// translation: 0 at the top, -ViewportWidth*Items at the bottom.
func (t Track) Offset(progress float64) float64 {
	if t.Items <= 0 {
		return 0
	}
	return -clamp(progress) * t.ViewportWidth * float64(t.Items)
}

// LeadSpacer is the width of the empty element placed before the first
// project so it starts aligned with the container's left edge.
func (t Track) LeadSpacer() float64 {
	w := t.ViewportWidth - t.ContainerLeft
	if w < 0 {
		return 0
	}
	return w
}

// PathLength is the filled fraction of the circular progress indicator.
func (t Track) PathLength(progress float64) float64 {
	return clamp(progress)
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
