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


package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stargazer-ai/stargazer/pkg/config"
	"github.com/stargazer-ai/stargazer/pkg/logger"
	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/vector"
)

func TestComponentRecordsKeptAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(slog.LevelInfo, &buf, "simple")

	r, err := rag.NewRetriever(nil, vector.Unavailable{}, config.RAGConfig{})
	require.NoError(t, err)

	items := r.SearchContext(context.Background(), "anything")

	assert.Empty(t, items)
	assert.Contains(t, buf.String(), "WARN Vector index unavailable")
}

func TestUnattributedRecordsDroppedAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWriter(slog.LevelInfo, &buf, "simple")

	rec := slog.NewRecord(time.Now(), slog.LevelWarn, "from elsewhere", 0)
	require.NoError(t, logger.GetLogger().Handler().Handle(context.Background(), rec))
	assert.Empty(t, buf.String())

	buf.Reset()
	logger.InitWriter(slog.LevelDebug, &buf, "simple")
	require.NoError(t, logger.GetLogger().Handler().Handle(context.Background(), rec))
	assert.Equal(t, "WARN from elsewhere\n", buf.String())
}
