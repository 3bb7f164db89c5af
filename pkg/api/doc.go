/*
Package api serves autoheal's optional HTTP endpoint for health checks and
Prometheus metrics.

The server is disabled by default and enabled with --listen-addr (or
AUTOHEAL_LISTEN_ADDR). It exposes:

	GET /health   overall status of every registered component
	GET /ready    200 once the runtime and reconciler components are healthy
	GET /live     200 while the process is running
	GET /metrics  Prometheus exposition of the autoheal_* metrics

Health state is owned by pkg/metrics; the reconciler updates the "runtime"
and "reconciler" components every cycle and the history recorder updates the
"history" component on every write. The api package only routes requests.

# Usage

	hs := api.NewHealthServer()
	go func() {
		if err := hs.Start(":9090"); err != nil {
			log.Logger.Error().Err(err).Msg("Health server failed")
		}
	}()
	defer hs.Shutdown(context.Background())

Non-GET requests to the health endpoints are rejected with 405.
*/
package api
