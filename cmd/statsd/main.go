// Command statsd runs the NIC/Protocol/Bus stack bound to one interface
// and exposes its operational counters (malformed frames, backpressure
// drops, cache-unslotted responses, observer and periodic-thread gauges)
// at /metrics for Prometheus to scrape. It carries no Agents of its own;
// it is a passive listener, useful for operating a deployment without
// running a producer or consumer in the same process.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jcconnects/UFSC-INE5424-sub001/agent"
	"github.com/jcconnects/UFSC-INE5424-sub001/bus"
	"github.com/jcconnects/UFSC-INE5424-sub001/metrics"
	"github.com/jcconnects/UFSC-INE5424-sub001/nic"
	"github.com/jcconnects/UFSC-INE5424-sub001/protocol"
	"github.com/jcconnects/UFSC-INE5424-sub001/rawsocket"
)

func main() {
	cfg := agent.ConfigFromEnv()
	if cfg.Iface == "" {
		fmt.Fprintln(os.Stderr, "statsd: SMARTDATA_IFACE must name an interface to bind")
		os.Exit(1)
	}

	hostname, err := os.Hostname()
	if err != nil {
		logrus.Fatalf("statsd: hostname: %v", err)
	}

	engine, err := rawsocket.New(cfg.Iface)
	if err != nil {
		logrus.Fatalf("statsd: rawsocket.New(%s): %v", cfg.Iface, err)
	}

	collector := metrics.NewCollector("smartdata", prometheus.Labels{
		"iface":    cfg.Iface,
		"hostname": hostname,
	})
	prometheus.MustRegister(collector)

	n := nic.NewNIC(engine)
	b := bus.New(collector)
	_ = protocol.New(n, b, collector)

	if err := n.Start(); err != nil {
		logrus.Fatalf("statsd: NIC Start: %v", err)
	}
	defer n.Stop()

	http.Handle("/metrics", promhttp.Handler())
	logrus.Info("statsd: listening on :18090/metrics")
	if err := http.ListenAndServe(":18090", nil); err != nil {
		logrus.Fatalf("statsd: ListenAndServe: %v", err)
	}
}
