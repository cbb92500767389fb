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
	"fmt"
	"log/slog"

	"github.com/stargazer-ai/stargazer/pkg/config"
)

// loadConfig loads the configuration and applies its logger section.
// The returned cleanup closes a log file opened for the config, if any.
func loadConfig(cli *CLI) (*config.Config, func(), error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cleanup, err := initLoggerFromConfig(cli, &cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	if cleanup == nil {
		cleanup = func() {}
	}

	source := cli.Config
	if source == "" {
		source = "defaults and environment"
	}
	slog.Debug("Configuration loaded", "source", source)
	return cfg, cleanup, nil
}
