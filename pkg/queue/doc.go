// Package queue is the task queue behind delayed notification jobs.
//
// An Enqueuer stores payloads as tasks, a Worker claims due tasks and runs
// the Handler registered under the task's name. Storage sits behind the
// EnqueuerRepository and WorkerRepository interfaces; MemoryStorage covers
// single-process setups and tests, the pgstore package covers Postgres.
//
//	storage := queue.NewMemoryStorage()
//	defer storage.Close()
//
//	enq, _ := queue.NewEnqueuer(storage)
//	_ = enq.Enqueue(ctx, Reminder{UserID: "u1"}, queue.WithDelay(time.Hour))
//
//	w, _ := queue.NewWorker(storage, queue.WithPullInterval(time.Second))
//	_ = w.RegisterHandler(queue.NewTaskHandler(func(ctx context.Context, r Reminder) error {
//	    return send(ctx, r)
//	}))
//	g.Go(w.Run(ctx))
//
// Failed tasks are retried with a backoff until MaxRetries retries are used,
// then moved to the dead letter queue. Tasks without a handler go to the
// dead letter queue on first claim.
package queue
