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

// Package openaiconf builds go-openai client configurations for OpenAI and
// Azure OpenAI deployments.
package openaiconf

import (
	"github.com/sashabaranov/go-openai"

	"github.com/stargazer-ai/stargazer/pkg/httpclient"
)

// Options describes one OpenAI-compatible endpoint.
type Options struct {
	// Azure selects Azure OpenAI routing (deployment in the URL, api-key header).
	Azure      bool
	APIKey     string
	Endpoint   string
	APIVersion string
	// Deployment overrides the model-to-deployment mapping on Azure.
	Deployment string
	MaxRetries int
	// HTTPClient replaces the default retrying doer, mainly for tests.
	HTTPClient openai.HTTPDoer
}

// ClientConfig returns the go-openai configuration for opts.
func ClientConfig(opts Options) openai.ClientConfig {
	var cfg openai.ClientConfig
	if opts.Azure {
		cfg = openai.DefaultAzureConfig(opts.APIKey, opts.Endpoint)
		if opts.APIVersion != "" {
			cfg.APIVersion = opts.APIVersion
		}
		if opts.Deployment != "" {
			deployment := opts.Deployment
			cfg.AzureModelMapperFunc = func(string) string { return deployment }
		}
	} else {
		cfg = openai.DefaultConfig(opts.APIKey)
		if opts.Endpoint != "" {
			cfg.BaseURL = opts.Endpoint
		}
	}

	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		cfg.HTTPClient = httpclient.New(
			httpclient.WithMaxRetries(opts.MaxRetries),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		)
	}
	return cfg
}
