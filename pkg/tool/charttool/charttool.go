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

// Package charttool provides natal_figure, which computes a simple natal
// chart (Sun, Moon, Ascendant and equal houses) and renders it as an SVG
// wheel.
package charttool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stargazer-ai/stargazer/pkg/tool"
	"github.com/stargazer-ai/stargazer/pkg/tool/functiontool"
)

// Name is the registered tool name.
const Name = "natal_figure"

// Accepted birth time layouts, all interpreted as UTC.
var layouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04",
}

// Args are the natal_figure arguments.
type Args struct {
	UTCDateTime string  `json:"utc_dt" jsonschema:"required,description=Birth time in UTC formatted as YYYY-MM-DD HH:MM"`
	Lat         float64 `json:"lat" jsonschema:"required,description=Birth latitude in degrees (north positive),minimum=-90,maximum=90"`
	Lon         float64 `json:"lon" jsonschema:"required,description=Birth longitude in degrees (east positive),minimum=-180,maximum=180"`
}

// Chart is the computed chart and the location of its rendering.
type Chart struct {
	Path      string    `json:"path"`
	UTC       string    `json:"utc"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Sun       Position  `json:"sun"`
	Moon      Position  `json:"moon"`
	Ascendant Position  `json:"ascendant"`
	Houses    []float64 `json:"houses"`
}

// Display is what the client sees: the chart file.
func (c Chart) Display() string {
	return c.Path
}

// New returns the natal_figure tool writing charts into dir.
func New(dir string) (tool.Tool, error) {
	if dir == "" {
		return nil, fmt.Errorf("%s requires an output directory", Name)
	}
	return functiontool.New(functiontool.Config{
		Name: Name,
		Description: "Draw a natal chart for a birth time and place. " +
			"Returns the Sun and Moon signs, the Ascendant, the house cusps and the path of the SVG chart.",
	}, func(ctx context.Context, args Args) (Chart, error) {
		return Draw(dir, args)
	})
}

// Compute calculates the chart for a UTC time and location without
// rendering it.
func Compute(t time.Time, lat, lon float64) Chart {
	d := daysSinceJ2000(t)
	asc := ascendant(localSiderealDegrees(d, lon), lat, obliquity(d))
	return Chart{
		UTC:       t.UTC().Format("2006-01-02 15:04"),
		Lat:       lat,
		Lon:       lon,
		Sun:       newPosition(sunLongitude(d)),
		Moon:      newPosition(moonLongitude(d)),
		Ascendant: newPosition(asc),
		Houses:    equalHouses(asc),
	}
}

// Draw computes the chart and writes its SVG into dir.
func Draw(dir string, args Args) (Chart, error) {
	t, err := ParseTime(args.UTCDateTime)
	if err != nil {
		return Chart{}, err
	}

	chart := Compute(t, args.Lat, args.Lon)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Chart{}, fmt.Errorf("failed to create charts directory: %w", err)
	}
	name := fmt.Sprintf("natal_%s_%s.svg", t.UTC().Format("20060102_1504"), uuid.NewString()[:8])
	path := filepath.Join(dir, name)
	chart.Path = path

	if err := os.WriteFile(path, []byte(renderSVG(&chart)), 0o644); err != nil {
		return Chart{}, fmt.Errorf("failed to write chart: %w", err)
	}

	slog.Info("Natal chart generated",
		"path", path,
		"sun", chart.Sun.Sign,
		"moon", chart.Moon.Sign,
		"ascendant", chart.Ascendant.Sign)
	return chart, nil
}

// ParseTime parses a birth time in one of the accepted layouts as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid utc_dt %q: expected YYYY-MM-DD HH:MM", s)
}
