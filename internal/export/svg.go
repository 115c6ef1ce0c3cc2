package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

var palette = []string{"#00ff9f", "#ff6b6b", "#4dabf7", "#ffd43b", "#cc5de8", "#ff922b", "#20c997", "#f783ac"}

// bounds is the world-space box mapped onto the image.
type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) add(p dynamo.Vec2) {
	b.minX = math.Min(b.minX, p.X)
	b.maxX = math.Max(b.maxX, p.X)
	b.minY = math.Min(b.minY, p.Y)
	b.maxY = math.Max(b.maxY, p.Y)
}

func sceneBounds(frames []dynamo.Frame, walls []dynamo.Wall) bounds {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, f := range frames {
		for _, a := range f.Agents {
			b.add(a.Position)
		}
	}
	for _, w := range walls {
		b.add(w.A)
		b.add(w.B)
	}

	// Add padding
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.05
	b.maxX += rangeX * 0.05
	b.minY -= rangeY * 0.05
	b.maxY += rangeY * 0.05
	return b
}

// TrajectoriesSVG draws walls as segments and every agent's path as a
// polyline, with a dot at its start. World y points up; both axes share one
// scale so the geometry is not distorted.
func TrajectoriesSVG(frames []dynamo.Frame, walls []dynamo.Wall, width, height int) string {
	if len(frames) == 0 {
		return ""
	}

	b := sceneBounds(frames, walls)
	scale := math.Min(float64(width)/(b.maxX-b.minX), float64(height)/(b.maxY-b.minY))
	project := func(p dynamo.Vec2) (float64, float64) {
		return (p.X - b.minX) * scale, float64(height) - (p.Y-b.minY)*scale
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	sb.WriteString(`<g stroke="#e9ecef" stroke-width="3" stroke-linecap="round">` + "\n")
	for _, w := range walls {
		x1, y1 := project(w.A)
		x2, y2 := project(w.B)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x1, y1, x2, y2))
	}
	sb.WriteString("</g>\n")

	n := len(frames[0].Agents)
	for i := 0; i < n; i++ {
		color := palette[i%len(palette)]
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color))
		for k, f := range frames {
			if i >= len(f.Agents) {
				break
			}
			x, y := project(f.Agents[i].Position)
			if k == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString(`"/>` + "\n")

		x, y := project(frames[0].Agents[i].Position)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", x, y, color))
	}

	sb.WriteString("</svg>")
	return sb.String()
}
