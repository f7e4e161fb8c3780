// Package metrics defines the records emitted while generating and
// compiling schedules and the sink interfaces that persist them. Sinks are
// created from configuration through the registry in factory.go; concrete
// implementations live in infra/metrics.
package metrics
