// Package infra contains technical adapters: table readers, the LaTeX
// compiler driver, metrics exporters, MQTT notifications and monitoring.
// These packages depend only on the interfaces defined in the core packages.
package infra
