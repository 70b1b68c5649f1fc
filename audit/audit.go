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

// Package audit records rejected admissions (RateLimited and
// ExceedsBurst) for later inspection through the admin surface. It never
// records Admitted outcomes — those are the common case and would
// dominate any store with no diagnostic value.
package audit

import (
	"context"
	"time"
)

// Outcome is the rejection kind an audit Record describes.
type Outcome string

const (
	RateLimited Outcome = "rate_limited"
	ExceedsBurst Outcome = "exceeds_burst"
)

// Record is one rejected admission.
type Record struct {
	Time    time.Time
	Backend string
	Op      string
	Cost    int64
	Outcome Outcome
	Wait    time.Duration // only meaningful for RateLimited
}

// Store persists and retrieves audit Records. Implementations must be
// safe for concurrent use.
type Store interface {
	Record(ctx context.Context, r Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
