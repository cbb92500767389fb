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

package rag

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Document is one question/answer pair to index.
type Document struct {
	ID       string         `json:"id,omitempty" yaml:"id,omitempty"`
	Question string         `json:"question" yaml:"question"`
	Answer   string         `json:"answer" yaml:"answer"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Text is the string embedded for the document.
func (d Document) Text() string {
	switch {
	case d.Question == "":
		return d.Answer
	case d.Answer == "":
		return d.Question
	}
	return "Question: " + d.Question + "\nAnswer: " + d.Answer
}

var documentIDSpace = uuid.MustParse("a4b2c0de-58f1-4e1c-8c3b-7d2a9b6e1f40")

// documentID derives a stable id for documents that carry none.
func documentID(d Document) string {
	return uuid.NewSHA1(documentIDSpace, []byte(d.Question+"\x00"+d.Answer)).String()
}

// LoadDocuments reads documents from a .jsonl, .json, .yaml or .yml file.
// Documents without an id get one derived from their content.
func LoadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	var docs []Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson":
		docs, err = decodeJSONLines(data)
	case ".json":
		err = json.Unmarshal(data, &docs)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &docs)
	default:
		return nil, fmt.Errorf("unsupported document format %q (valid: .jsonl, .json, .yaml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range docs {
		if docs[i].Question == "" && docs[i].Answer == "" {
			return nil, fmt.Errorf("document %d has neither question nor answer", i+1)
		}
		if docs[i].ID == "" {
			docs[i].ID = documentID(docs[i])
		}
	}
	return docs, nil
}

func decodeJSONLines(data []byte) ([]Document, error) {
	var docs []Document
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var d Document
		if err := json.Unmarshal(text, &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	return docs, scanner.Err()
}
