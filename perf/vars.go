package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency   = metric.NewHistogram("1m1s")
	DeliveryDelay     = metric.NewHistogram("1m1s")
	OgmSentPerSecond  = metric.NewCounter("10s1s")
	OgmRecvPerSecond  = metric.NewCounter("10s1s")
	OgmSentBytes      = metric.NewCounter("10s1s")
	OgmDropped        = metric.NewCounter("1m1s")
	OgmRejected       = metric.NewCounter("1m1s")
	NextHopChanges    = metric.NewCounter("1m1s")
	OriginatorsLearnt = metric.NewCounter("1m1s")
)

// Mount serves the metrics page and expvar on mux.
func Mount(mux *http.ServeMux) {
	mux.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	mux.Handle("/debug/vars", expvar.Handler())
}

func init() {
	expvar.Publish("batsim:OgmSent/s", OgmSentPerSecond)
	expvar.Publish("batsim:OgmRecv/s", OgmRecvPerSecond)
	expvar.Publish("batsim:OgmSentBytes/s", OgmSentBytes)
	expvar.Publish("batsim:OgmDropped", OgmDropped)
	expvar.Publish("batsim:OgmRejected", OgmRejected)
	expvar.Publish("batsim:NextHopChanges", NextHopChanges)
	expvar.Publish("batsim:OriginatorsLearnt", OriginatorsLearnt)
	expvar.Publish("batsim:DeliveryDelay (ms)", DeliveryDelay)
	expvar.Publish("batsim:DispatchLatency (µs)", DispatchLatency)
}
