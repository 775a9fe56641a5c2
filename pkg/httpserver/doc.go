// Package httpserver serves the worker's probe endpoints.
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.Liveness())
//	r.Get("/readyz", httpserver.Readiness(log, 2*time.Second, map[string]httpserver.Check{
//	    "postgres": pg.Healthcheck(pool),
//	}))
//	g.Go(func() error { return httpserver.New(cfg).Run(ctx, r) })
package httpserver
