// Package environment names the deployment stage of the worker and carries
// it through context.Context into log records.
//
//	cfg := config.MustLoad[environment.Config]()
//	ctx = environment.WithContext(ctx, cfg.Environment())
package environment
