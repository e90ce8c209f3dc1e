// Package telemetry exposes hookguard state as Prometheus metrics.
//
// Hook invocations are short-lived processes, so nothing is scraped live.
// Instead a Collector reads the state records at collection time and the
// result is written either to stdout in the text exposition format or to a
// node_exporter textfile:
//
//	reg := telemetry.NewRegistry(stateManager)
//	err := telemetry.WriteTextfile("/var/lib/node_exporter/hookguard.prom", reg)
//
// Every series recorded through state.Manager.UpdateMetric is exported as
// hookguard_metric_latest{name="..."} along with its sample count.
package telemetry
