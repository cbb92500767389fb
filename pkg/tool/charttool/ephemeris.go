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
	"math"
	"time"
)

// Low-precision positions, good to about a degree for the Sun and a couple
// of degrees for the Moon between 1950 and 2050.

const (
	j2000      = 2451545.0
	unixEpochJ = 2440587.5
)

var signs = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Position is an ecliptic longitude and its zodiac placement.
type Position struct {
	Longitude float64 `json:"longitude"`
	Sign      string  `json:"sign"`
	Degree    float64 `json:"degree"`
}

func newPosition(lon float64) Position {
	lon = normalize(lon)
	idx := int(lon / 30)
	if idx > 11 {
		idx = 11
	}
	return Position{
		Longitude: round(lon, 2),
		Sign:      signs[idx],
		Degree:    round(lon-float64(idx)*30, 2),
	}
}

// daysSinceJ2000 returns days since 2000-01-01 12:00 TT, ignoring delta T.
func daysSinceJ2000(t time.Time) float64 {
	jd := float64(t.UTC().UnixNano())/float64(24*time.Hour) + unixEpochJ
	return jd - j2000
}

func sunLongitude(d float64) float64 {
	g := rad(357.529 + 0.98560028*d)
	q := 280.459 + 0.98564736*d
	return normalize(q + 1.915*math.Sin(g) + 0.020*math.Sin(2*g))
}

func moonLongitude(d float64) float64 {
	l0 := 218.316 + 13.176396*d
	m := rad(134.963 + 13.064993*d)
	return normalize(l0 + 6.289*math.Sin(m))
}

func obliquity(d float64) float64 {
	return 23.439 - 0.0000004*d
}

// localSiderealDegrees is the right ascension of the meridian at lon.
func localSiderealDegrees(d, lon float64) float64 {
	return normalize(280.46061837 + 360.98564736629*d + lon)
}

// ascendant returns the ecliptic longitude rising on the eastern horizon.
func ascendant(ramc, lat, eps float64) float64 {
	r, e, p := rad(ramc), rad(eps), rad(lat)
	y := math.Cos(r)
	x := -(math.Sin(r)*math.Cos(e) + math.Tan(p)*math.Sin(e))
	return normalize(deg(math.Atan2(y, x)))
}

// equalHouses returns twelve cusps 30 degrees apart starting at asc.
func equalHouses(asc float64) []float64 {
	cusps := make([]float64, 12)
	for i := range cusps {
		cusps[i] = round(normalize(asc+float64(i)*30), 2)
	}
	return cusps
}

func normalize(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func rad(d float64) float64 { return d * math.Pi / 180 }

func deg(r float64) float64 { return r * 180 / math.Pi }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
