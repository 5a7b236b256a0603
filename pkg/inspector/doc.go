// Package inspector serves a live view of a pulse bus over HTTP.
//
// Mount it on any server:
//
//	ins := inspector.New(bus, inspector.WithGatherer(metrics.Gatherer()))
//	defer ins.Close()
//	http.ListenAndServe(":7070", ins)
//
// Routes:
//
//	GET /healthz            liveness probe
//	GET /metrics            Prometheus exposition
//	GET /handlers?event=x   number of handlers registered for x
//	GET /events             WebSocket stream of dispatches, one JSON frame each
//
// A client that cannot keep up loses frames instead of slowing the bus.
package inspector
