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

package vector

import (
	"context"
	"fmt"
)

// Unavailable is the gateway used when the configured backend cannot be
// reached or has no credentials. Every operation fails with ErrUnavailable.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}

func (u Unavailable) Query(context.Context, QueryRequest) ([]Match, error) {
	return nil, u.err()
}

func (u Unavailable) FetchExisting(context.Context, string, []string) (map[string]bool, error) {
	return nil, u.err()
}

func (u Unavailable) Upsert(context.Context, string, []Record) error {
	return u.err()
}

func (Unavailable) Name() string { return "unavailable" }

func (Unavailable) Close() error { return nil }

var _ Gateway = Unavailable{}
