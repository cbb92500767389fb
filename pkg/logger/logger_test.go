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

package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"", slog.LevelInfo, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimpleFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(slog.LevelInfo, &buf, "simple")

	slog.Info("retrieval finished", "items", 2)
	slog.Debug("hidden")

	assert.Equal(t, "INFO retrieval finished items=2\n", buf.String())
}

func TestWithAttrsCarriedIntoLine(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(slog.LevelDebug, &buf, "simple")

	GetLogger().With("component", "rag").Warn("backend unavailable")

	assert.Equal(t, "WARN backend unavailable component=rag\n", buf.String())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(slog.LevelInfo, &buf, "json")

	slog.Info("hello")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
