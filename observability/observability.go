// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability provides metrics and tracing for admission
// decisions and registry reconfiguration, built on OpenTelemetry with a
// Prometheus metrics exporter and pluggable trace exporters. The default
// Manager is a no-op so the facade never pays for instrumentation that
// was never configured.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Manager is the observability surface the facade and registry call into.
// A zero-value-safe no-op implementation (NoopManager) is the default;
// NewManager builds a real otel-backed one.
type Manager struct {
	meter  metric.Meter
	tracer trace.Tracer

	admissionsTotal     metric.Int64Counter
	waitSeconds         metric.Float64Histogram
	reconfigurationsTot metric.Int64Counter
}

// NewManager builds a Manager backed by the given otel MeterProvider and
// TracerProvider. Either may be nil, in which case the corresponding
// instruments are left unset and calls into them are no-ops.
func NewManager(mp metric.MeterProvider, tp trace.TracerProvider) (*Manager, error) {
	m := &Manager{}

	if mp != nil {
		m.meter = mp.Meter("github.com/kadirpekel/throttlefs")

		admissions, err := m.meter.Int64Counter("throttlefs_admissions_total",
			metric.WithDescription("Count of admission decisions by backend, op, and outcome."))
		if err != nil {
			return nil, err
		}
		m.admissionsTotal = admissions

		wait, err := m.meter.Float64Histogram("throttlefs_wait_seconds",
			metric.WithDescription("Time spent blocked waiting for admission."),
			metric.WithUnit("s"))
		if err != nil {
			return nil, err
		}
		m.waitSeconds = wait

		reconfig, err := m.meter.Int64Counter("throttlefs_registry_reconfigurations_total",
			metric.WithDescription("Count of registry mutations (set_rate/set_burst/clear)."))
		if err != nil {
			return nil, err
		}
		m.reconfigurationsTot = reconfig
	}

	if tp != nil {
		m.tracer = tp.Tracer("github.com/kadirpekel/throttlefs")
	}

	return m, nil
}

// NoopManager returns a Manager with no backing instruments; every method
// is a cheap no-op.
func NoopManager() *Manager { return &Manager{} }

// RecordAdmission records one admission decision.
func (m *Manager) RecordAdmission(ctx context.Context, backend, op, outcome string) {
	if m == nil || m.admissionsTotal == nil {
		return
	}
	m.admissionsTotal.Add(ctx, 1, metric.WithAttributes(
		attrString("backend", backend),
		attrString("op", op),
		attrString("outcome", outcome),
	))
}

// RecordWait records seconds spent blocked in AcquireBlocking.
func (m *Manager) RecordWait(ctx context.Context, backend, op string, seconds float64) {
	if m == nil || m.waitSeconds == nil {
		return
	}
	m.waitSeconds.Record(ctx, seconds, metric.WithAttributes(
		attrString("backend", backend),
		attrString("op", op),
	))
}

// RecordReconfiguration records one registry mutation.
func (m *Manager) RecordReconfiguration(ctx context.Context, backend, op, kind string) {
	if m == nil || m.reconfigurationsTot == nil {
		return
	}
	m.reconfigurationsTot.Add(ctx, 1, metric.WithAttributes(
		attrString("backend", backend),
		attrString("op", op),
		attrString("kind", kind),
	))
}

// StartSpan starts a trace span for one intercepted call, if tracing is
// configured; otherwise it returns ctx unchanged and a no-op span.
func (m *Manager) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return ctx, tracenoop.Span{}
	}
	return m.tracer.Start(ctx, name)
}
