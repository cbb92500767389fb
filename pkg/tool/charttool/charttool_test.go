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
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func angleDiff(a, b float64) float64 {
	d := math.Abs(normalize(a) - normalize(b))
	return math.Min(d, 360-d)
}

func TestSunLongitude(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"J2000 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 280.37},
		{"March equinox 2000", time.Date(2000, 3, 20, 7, 35, 0, 0, time.UTC), 0},
		{"June solstice 2021", time.Date(2021, 6, 21, 3, 32, 0, 0, time.UTC), 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sunLongitude(daysSinceJ2000(tt.at))
			assert.Less(t, angleDiff(got, tt.want), 0.5, "got %.3f", got)
		})
	}
}

func TestMoonLongitude_J2000(t *testing.T) {
	got := moonLongitude(0)
	assert.Less(t, angleDiff(got, 223.3), 2.0, "got %.3f", got)
}

func TestAscendant(t *testing.T) {
	assert.InDelta(t, 90.0, ascendant(0, 0, 0), 1e-9)
	assert.InDelta(t, 180.0, ascendant(90, 0, 23.44), 1e-9)
	assert.InDelta(t, 0.0, angleDiff(ascendant(270, 0, 23.44), 0), 1e-9)
}

func TestEqualHouses(t *testing.T) {
	cusps := equalHouses(350)
	require.Len(t, cusps, 12)
	assert.Equal(t, 350.0, cusps[0])
	assert.Equal(t, 20.0, cusps[1])
	assert.Equal(t, 320.0, cusps[11])
}

func TestNewPosition(t *testing.T) {
	p := newPosition(-0.5)
	assert.Equal(t, "Pisces", p.Sign)
	assert.Equal(t, 29.5, p.Degree)

	p = newPosition(280.37)
	assert.Equal(t, "Capricorn", p.Sign)
	assert.InDelta(t, 10.37, p.Degree, 1e-9)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2000, 1, 18, 11, 0, 0, 0, time.UTC)
	for _, s := range []string{"2000-01-18 11:00", "2000-01-18T11:00:00Z", " 2000-01-18 11:00:00 "} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	_, err := ParseTime("18/01/2000")
	assert.Error(t, err)
}

func TestNatalFigure_WritesSVG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	tl, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, Name, tl.Name())

	res, err := tl.Call(context.Background(), map[string]any{
		"utc_dt": "2000-01-18 11:00",
		"lat":    25.03,
		"lon":    "121.56",
	})
	require.NoError(t, err)

	chart, ok := res.Value.(Chart)
	require.True(t, ok)
	assert.Equal(t, chart.Path, res.Display)
	assert.True(t, strings.HasPrefix(chart.Path, dir))
	assert.Equal(t, "Capricorn", chart.Sun.Sign)
	assert.Len(t, chart.Houses, 12)
	assert.Equal(t, chart.Ascendant.Longitude, chart.Houses[0])

	data, err := os.ReadFile(chart.Path)
	require.NoError(t, err)
	svg := string(data)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "Sun")
	assert.Contains(t, svg, "Moon")

	assert.Contains(t, res.ModelContent(), `"path"`)
}

func TestNatalFigure_RejectsBadArguments(t *testing.T) {
	tl, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = tl.Call(context.Background(), map[string]any{"utc_dt": "yesterday", "lat": 0, "lon": 0})
	assert.Error(t, err)

	_, err = tl.Call(context.Background(), map[string]any{"utc_dt": "2000-01-18 11:00", "lat": 95, "lon": 0})
	assert.Error(t, err)

	_, err = tl.Call(context.Background(), map[string]any{"lat": 0, "lon": 0})
	assert.Error(t, err)
}
