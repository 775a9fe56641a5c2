// Package pg connects to PostgreSQL with pgx/v5 and applies goose migrations.
//
//	cfg, _ := config.Load[pg.Config]()
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, db.Migrations, db.MigrationsDir, cfg, log); err != nil {
//	    return err
//	}
//
// Healthcheck returns a probe for readiness endpoints. IsNotFoundError and
// IsDuplicateKeyError classify driver errors for repositories.
package pg
