/*
Package observability turns evaluator lifecycle events into logs and
Prometheus metrics.

Both are exposed as domain.LifecycleHooks; Combine chains several sets so a
workbench can log and count at once:

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	wb := dynamo.New(dynamo.WithLifecycleHooks(observability.Combine(
		metrics.Hooks(),
		observability.LoggingHooks(logger),
	)))
*/
package observability
