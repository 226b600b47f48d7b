// Package server exposes the agent runtime over HTTP: a JSON REST API under
// /api for agent status, triggering, configuration, and feedback; Kubernetes
// health probes on /healthz and /readyz; and a dedicated Prometheus metrics
// listener.
//
// The API never mutates agent configuration directly. Every write goes
// through the unit's versioned SaveConfig, is validated by the guardrails
// package where applicable, and leaves a row in the ledger's audit trail.
package server
