/*
Package observability turns engine lifecycle events into metrics and logs.

Both helpers return domain.LifecycleHooks, so they compose with each other
and with host hooks through stepwise.WithLifecycleHooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng, err := stepwise.Compile(def,
		stepwise.WithLifecycleHooks(metrics.Hooks(def.Name)),
		stepwise.WithLifecycleHooks(observability.LogHooks(logger)),
	)

Free-text answers never reach a label or a log line; only their type does.
*/
package observability
