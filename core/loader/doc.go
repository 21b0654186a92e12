// Package loader registers the features of the API server.
//
// Each feature implements Feature and adds its routes in Load. The Manager
// loads enabled features in registration order:
//
//	mgr := loader.NewManager()
//	mgr.Register(sync.NewFeature(svc, logg))
//	if err := mgr.LoadAll(app); err != nil {
//	    return err
//	}
package loader
