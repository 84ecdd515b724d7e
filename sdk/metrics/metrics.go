// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus collectors of the transfer core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dataset_transfer"

type Metrics struct {
	bytes       *prometheus.CounterVec
	files       *prometheus.CounterVec
	retries     *prometheus.CounterVec
	credentials *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes moved to or from the object store.",
		}, []string{"direction"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed, by direction and outcome.",
		}, []string{"direction", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Transient failures that were retried.",
		}, []string{"direction"}),
		credentials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_fetches_total",
			Help:      "Credential requests sent to the control plane.",
		}, []string{"kind", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.bytes, m.files, m.retries, m.credentials)
	}
	return m
}

func (m *Metrics) AddBytes(direction string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) FileDone(direction, outcome string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(direction, outcome).Inc()
}

func (m *Metrics) Retry(direction string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(direction).Inc()
}

func (m *Metrics) CredentialFetch(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.credentials.WithLabelValues(kind, result).Inc()
}
