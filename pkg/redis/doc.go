// Package redis connects to the optional Redis server.
//
// Redis backs event deduplication (notify.RedisDeduper) and cross-process
// realtime fan-out (realtime.Redis). Connect retries until the server
// answers a PING:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Healthcheck plugs the client into the worker's readiness endpoint.
package redis
