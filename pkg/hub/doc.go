// Package hub assembles the notification engine from configuration.
//
// Without a database the hub runs entirely in memory: flows from the YAML
// catalog, an in-memory delivery log and an in-process job queue. With
// WithDB it switches to the Postgres store and task tables; WithRedis adds
// shared deduplication and the redis realtime backend.
//
//	h, err := hub.New(ctx, cfg, hub.WithDB(db), hub.WithRedis(rdb), hub.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	err = h.Controller.Notify(ctx, notify.SongUploaded{SongID: "s1"}, "artist-1", notify.ClassArtist)
package hub
