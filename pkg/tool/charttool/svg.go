// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package charttool

import (
	"fmt"
	"math"
	"strings"
)

const (
	size   = 600
	center = size / 2
	outerR = 280.0
	signR  = 240.0
	houseR = 200.0
	bodyR  = 160.0
)

// renderSVG draws the wheel with the Ascendant on the left, as is
// customary, and longitudes increasing counter-clockwise.
func renderSVG(c *Chart) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", size, size, size, size)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")
	fmt.Fprintf(&b, `<title>Natal chart %s</title>`+"\n", c.UTC)

	for _, r := range []float64{outerR, signR, houseR} {
		fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="%.0f" fill="none" stroke="black" stroke-width="1"/>`+"\n", center, center, r)
	}

	asc := c.Ascendant.Longitude
	for i, name := range signs {
		start := float64(i) * 30
		line(&b, asc, start, signR, outerR, "black", 1)
		x, y := point(asc, start+15, (outerR+signR)/2)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="11" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n", x, y, name[:3])
	}

	for i, cusp := range c.Houses {
		width := 1
		if i%3 == 0 {
			width = 2
		}
		line(&b, asc, cusp, 0, signR, "gray", width)
		x, y := point(asc, cusp+15, houseR-15)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="10" fill="gray" text-anchor="middle" dominant-baseline="middle">%d</text>`+"\n", x, y, i+1)
	}

	body(&b, asc, c.Sun.Longitude, "Sun", "#d4a017")
	body(&b, asc, c.Moon.Longitude, "Moon", "#4a6fa5")

	b.WriteString("</svg>\n")
	return b.String()
}

func body(b *strings.Builder, asc, lon float64, label, color string) {
	x, y := point(asc, lon, bodyR)
	fmt.Fprintf(b, `<circle cx="%.1f" cy="%.1f" r="6" fill="%s"/>`+"\n", x, y, color)
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" font-size="12" text-anchor="middle">%s</text>`+"\n", x, y-10, label)
}

func line(b *strings.Builder, asc, lon, r1, r2 float64, color string, width int) {
	x1, y1 := point(asc, lon, r1)
	x2, y2 := point(asc, lon, r2)
	fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="%d"/>`+"\n", x1, y1, x2, y2, color, width)
}

// point maps an ecliptic longitude to canvas coordinates.
func point(asc, lon, r float64) (float64, float64) {
	a := rad(180 + lon - asc)
	return center + r*math.Cos(a), center - r*math.Sin(a)
}
