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


package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stargazer-ai/stargazer/pkg/rag"
	"github.com/stargazer-ai/stargazer/pkg/runtime"
)

// IndexCmd loads question and answer documents into the vector index.
// Documents already present are skipped.
type IndexCmd struct {
	File        string `arg:"" type:"existingfile" help:"Documents file (.jsonl, .json, .yaml)."`
	Namespace   string `help:"Target namespace (default: rag.namespace)."`
	BatchSize   int    `name:"batch-size" help:"Documents embedded and upserted together (default: vector.batch_size)."`
	Concurrency int    `help:"Batches processed in parallel." default:"4"`
}

func (c *IndexCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := loadConfig(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := rag.LoadDocuments(c.File)
	if err != nil {
		return err
	}

	rt, err := runtime.New(ctx, cfg, runtime.Options{RetrievalOnly: true})
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	defer rt.Close()

	opts := []rag.IndexerOption{rag.WithConcurrency(c.Concurrency)}
	if c.BatchSize > 0 {
		opts = append(opts, rag.WithBatchSize(c.BatchSize))
	}
	ix, err := rt.Indexer(opts...)
	if err != nil {
		return err
	}

	namespace := c.Namespace
	if namespace == "" {
		namespace = rt.Retriever().Namespace()
	}

	start := time.Now()
	stats, err := ix.Index(ctx, namespace, docs)
	if err != nil {
		return fmt.Errorf("indexing failed after %d of %d documents: %w", stats.Indexed, stats.Total, err)
	}

	fmt.Fprintf(os.Stdout, "Indexed %d documents into %q (%d already present, %d total) in %s\n",
		stats.Indexed, namespace, stats.Skipped, stats.Total, time.Since(start).Round(time.Millisecond))
	return nil
}
