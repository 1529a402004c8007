// Command agentdemo wires one producer Agent and one consumer Agent onto
// a single NIC/Protocol/Bus stack and runs them long enough to observe a
// few RESPONSE deliveries. It is illustrative only: a real deployment
// runs one Agent set per process per vehicle, not a producer and
// consumer side by side.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/agent"
	"github.com/jcconnects/UFSC-INE5424-sub001/bus"
	"github.com/jcconnects/UFSC-INE5424-sub001/clock"
	"github.com/jcconnects/UFSC-INE5424-sub001/message"
	"github.com/jcconnects/UFSC-INE5424-sub001/metrics"
	"github.com/jcconnects/UFSC-INE5424-sub001/nic"
	"github.com/jcconnects/UFSC-INE5424-sub001/protocol"
	"github.com/jcconnects/UFSC-INE5424-sub001/rawsocket"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

func main() {
	cfg := agent.ConfigFromEnv()
	if cfg.Iface == "" {
		logrus.Fatal("agentdemo: SMARTDATA_IFACE must name an interface to bind")
	}

	engine, err := rawsocket.New(cfg.Iface)
	if err != nil {
		logrus.Fatalf("agentdemo: rawsocket.New(%s): %v", cfg.Iface, err)
	}

	n := nic.NewNIC(engine)
	collector := metrics.NewCollector("smartdata", nil)
	b := bus.New(collector)
	p := protocol.New(n, b, collector)

	if err := n.Start(); err != nil {
		logrus.Fatalf("agentdemo: NIC Start: %v", err)
	}
	defer n.Stop()

	clk := clock.FromEnv()
	frameNo := 0

	producer, err := agent.New(agent.Params{
		Name:    "demo-producer",
		Role:    agent.RoleProducer,
		Unit:    unit.Image,
		Address: address.Address{MAC: n.LocalMAC(), Port: 1},
		Sender:  p,
		Bus:     b,
		Clock:   clk,
		Metrics: collector,
		Producer: func(u unit.Unit, state any) []byte {
			frameNo++
			return []byte(fmt.Sprintf("frame-%d", frameNo))
		},
	})
	if err != nil {
		logrus.Fatalf("agentdemo: producer Agent: %v", err)
	}
	if err := producer.Start(); err != nil {
		logrus.Fatalf("agentdemo: producer Start: %v", err)
	}
	defer producer.Destroy()

	consumer, err := agent.New(agent.Params{
		Name:    "demo-consumer",
		Role:    agent.RoleConsumer,
		Unit:    unit.Image,
		Address: n.Address(),
		Sender:  p,
		Bus:     b,
		Clock:   clk,
		Metrics: collector,
		Handler: func(m *message.Message, state any) error {
			logrus.WithFields(logrus.Fields{"origin": m.Origin, "value": string(m.Value)}).Info("received response")
			return nil
		},
	})
	if err != nil {
		logrus.Fatalf("agentdemo: consumer Agent: %v", err)
	}
	if err := consumer.Start(); err != nil {
		logrus.Fatalf("agentdemo: consumer Start: %v", err)
	}
	defer consumer.Destroy()

	consumer.StartPeriodicInterest(200_000) // 200ms

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-time.After(30 * time.Second):
	}
	logrus.Info("agentdemo: shutting down")
}
