/*
Package observability turns conversation lifecycle hooks into Prometheus
metrics and structured log lines.
*/
package observability
