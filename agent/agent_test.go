package agent

import (
	"sync"
	"testing"
	"time"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/bus"
	"github.com/jcconnects/UFSC-INE5424-sub001/message"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

// recordingSender is a fake Sender that records every message handed to
// Send, for assertions that don't need a real wire/NIC stack.
type recordingSender struct {
	mu   sync.Mutex
	sent []*message.Message
}

func (s *recordingSender) Send(m *message.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return len(m.Value), nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func waitForCount(t *testing.T, s *recordingSender, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.count() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sent messages, got %d", n, s.count())
}

func TestNew_Validation(t *testing.T) {
	okSender := &recordingSender{}
	okBus := bus.New(nil)

	tests := []struct {
		name   string
		params Params
		want   error
	}{
		{
			name:   "nil sender",
			params: Params{Bus: okBus, Role: RoleProducer, Producer: func(unit.Unit, any) []byte { return nil }},
			want:   ErrNilSender,
		},
		{
			name:   "nil bus",
			params: Params{Sender: okSender, Role: RoleProducer, Producer: func(unit.Unit, any) []byte { return nil }},
			want:   ErrNilBus,
		},
		{
			name:   "producer without ProducerFunc",
			params: Params{Sender: okSender, Bus: okBus, Role: RoleProducer},
			want:   ErrNilProducerFunc,
		},
		{
			name:   "consumer without HandlerFunc",
			params: Params{Sender: okSender, Bus: okBus, Role: RoleConsumer},
			want:   ErrNilHandlerFunc,
		},
		{
			name:   "unknown role",
			params: Params{Sender: okSender, Bus: okBus, Role: Role(99)},
			want:   ErrUnknownRole,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.params); err != tt.want {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStart_ReturnsErrAlreadyStarted(t *testing.T) {
	a, err := New(Params{
		Sender:   &recordingSender{},
		Bus:      bus.New(nil),
		Role:     RoleProducer,
		Unit:     unit.Image,
		Producer: func(unit.Unit, any) []byte { return nil },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Destroy()

	if err := a.Start(); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := a.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestDestroy_Idempotent(t *testing.T) {
	a, _ := New(Params{
		Sender:   &recordingSender{},
		Bus:      bus.New(nil),
		Role:     RoleProducer,
		Unit:     unit.Image,
		Producer: func(unit.Unit, any) []byte { return nil },
	})
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	a.Destroy()
	a.Destroy() // must not panic or deadlock

	if a.Running() {
		t.Fatalf("expected Running() == false after Destroy")
	}
}

func TestDestroy_WithoutStart(t *testing.T) {
	a, _ := New(Params{
		Sender:   &recordingSender{},
		Bus:      bus.New(nil),
		Role:     RoleConsumer,
		Unit:     unit.Image,
		Handler:  func(*message.Message, any) error { return nil },
	})
	done := make(chan struct{})
	go func() {
		a.Destroy()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Destroy without Start should return immediately")
	}
}

func TestProducer_INTERESTLaunchesReplyThread(t *testing.T) {
	sender := &recordingSender{}
	b := bus.New(nil)
	producerAddr := address.Address{MAC: address.MAC{0x02, 0, 0, 0, 0, 0x01}, Port: 7}

	a, err := New(Params{
		Sender:  sender,
		Bus:     b,
		Role:    RoleProducer,
		Unit:    unit.Image,
		Address: producerAddr,
		Producer: func(u unit.Unit, state any) []byte {
			return []byte("frame")
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Destroy()

	interest := &message.Message{Kind: message.Interest, Unit: unit.Image, Period: 5 * time.Millisecond}
	if delivered := b.Notify(interest, interest.Condition()); !delivered {
		t.Fatalf("expected the producer's observer to match the INTEREST condition")
	}

	waitForCount(t, sender, 3, time.Second)

	for _, m := range sender.sent {
		if m.Kind != message.Response {
			t.Fatalf("expected only RESPONSE sends from the producer, got %v", m.Kind)
		}
		if string(m.Value) != "frame" {
			t.Errorf("Value = %q, want %q", m.Value, "frame")
		}
		if m.Origin != producerAddr {
			t.Errorf("Origin = %v, want %v", m.Origin, producerAddr)
		}
	}
}

func TestProducer_ZeroPeriodInterestIsNoop(t *testing.T) {
	sender := &recordingSender{}
	b := bus.New(nil)

	a, _ := New(Params{
		Sender:   sender,
		Bus:      b,
		Role:     RoleProducer,
		Unit:     unit.Image,
		Producer: func(unit.Unit, any) []byte { return []byte("x") },
	})
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Destroy()

	interest := &message.Message{Kind: message.Interest, Unit: unit.Image, Period: 0}
	b.Notify(interest, interest.Condition())

	time.Sleep(50 * time.Millisecond)
	if got := sender.count(); got != 0 {
		t.Fatalf("expected no RESPONSE sent for a 0-period INTEREST, got %d", got)
	}
}

func TestProducer_PanicInProducerFuncIsRecovered(t *testing.T) {
	sender := &recordingSender{}
	b := bus.New(nil)

	a, _ := New(Params{
		Sender: sender,
		Bus:    b,
		Role:   RoleProducer,
		Unit:   unit.Image,
		Producer: func(unit.Unit, any) []byte {
			panic("boom")
		},
	})
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Destroy()

	interest := &message.Message{Kind: message.Interest, Unit: unit.Image, Period: 5 * time.Millisecond}
	b.Notify(interest, interest.Condition())

	waitForCount(t, sender, 2, time.Second)
	for _, m := range sender.sent {
		if len(m.Value) != 0 {
			t.Errorf("expected an empty RESPONSE value after a producer panic, got %q", m.Value)
		}
	}
}

func TestConsumer_DropsRepeatFromSameOriginWithinWindow(t *testing.T) {
	b := bus.New(nil)
	accepted := make(chan *message.Message, 8)

	a, err := New(Params{
		Sender: &recordingSender{},
		Bus:    b,
		Role:   RoleConsumer,
		Unit:   unit.Image,
		Handler: func(m *message.Message, state any) error {
			accepted <- m
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Destroy()

	// A one-second interest period makes the rate gate unambiguous at
	// test timescales: the second RESPONSE arrives well inside the
	// window and must be dropped.
	a.StartPeriodicInterest(1_000_000)

	origin := address.MAC{0x02, 0, 0, 0, 0, 0x10}
	first := &message.Message{Kind: message.Response, Unit: unit.Image, Origin: address.Address{MAC: origin}, Value: []byte("v1")}
	second := &message.Message{Kind: message.Response, Unit: unit.Image, Origin: address.Address{MAC: origin}, Value: []byte("v2")}

	b.Notify(first, first.Condition())
	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatalf("expected the first RESPONSE to be delivered to the handler")
	}

	b.Notify(second, second.Condition())
	select {
	case m := <-accepted:
		t.Fatalf("expected the second RESPONSE within the window to be dropped, got %q", m.Value)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestConsumer_DistinctOriginsBothAccepted(t *testing.T) {
	b := bus.New(nil)
	accepted := make(chan *message.Message, 8)

	a, _ := New(Params{
		Sender: &recordingSender{},
		Bus:    b,
		Role:   RoleConsumer,
		Unit:   unit.Image,
		Handler: func(m *message.Message, state any) error {
			accepted <- m
			return nil
		},
	})
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Destroy()
	a.StartPeriodicInterest(1_000_000)

	originA := address.MAC{0x02, 0, 0, 0, 0, 0x01}
	originB := address.MAC{0x02, 0, 0, 0, 0, 0x02}
	first := &message.Message{Kind: message.Response, Unit: unit.Image, Origin: address.Address{MAC: originA}}
	second := &message.Message{Kind: message.Response, Unit: unit.Image, Origin: address.Address{MAC: originB}}

	b.Notify(first, first.Condition())
	b.Notify(second, second.Condition())

	seen := map[address.MAC]bool{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-accepted:
			seen[m.Origin.MAC] = true
		case <-time.After(time.Second):
			t.Fatalf("expected both origins to be delivered, got %d", i)
		}
	}
	if !seen[originA] || !seen[originB] {
		t.Fatalf("expected both origins accepted independently, got %v", seen)
	}
}

func TestConsumer_HandlerPanicIsRecoveredAndAgentKeepsRunning(t *testing.T) {
	b := bus.New(nil)
	var calls int
	var mu sync.Mutex
	done := make(chan struct{}, 8)

	a, _ := New(Params{
		Sender: &recordingSender{},
		Bus:    b,
		Role:   RoleConsumer,
		Unit:   unit.Image,
		Handler: func(m *message.Message, state any) error {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			done <- struct{}{}
			if first {
				panic("handler exploded")
			}
			return nil
		},
	})
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Destroy()

	origin := address.MAC{0x02, 0, 0, 0, 0, 0x01}
	// No StartPeriodicInterest call: interestPeriodUS stays 0, so the
	// cache accepts unconditionally and both calls land regardless of
	// timing.
	m1 := &message.Message{Kind: message.Response, Unit: unit.Image, Origin: address.Address{MAC: origin}}
	m2 := &message.Message{Kind: message.Response, Unit: unit.Image, Origin: address.Address{MAC: origin}}

	b.Notify(m1, m1.Condition())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected the first (panicking) handler call")
	}

	b.Notify(m2, m2.Condition())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected the Agent to keep processing after a recovered handler panic")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDestroy_StopsReplyThread(t *testing.T) {
	sender := &recordingSender{}
	b := bus.New(nil)

	a, _ := New(Params{
		Sender:   sender,
		Bus:      b,
		Role:     RoleProducer,
		Unit:     unit.Image,
		Producer: func(unit.Unit, any) []byte { return []byte("v") },
	})
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	interest := &message.Message{Kind: message.Interest, Unit: unit.Image, Period: 5 * time.Millisecond}
	b.Notify(interest, interest.Condition())
	waitForCount(t, sender, 2, time.Second)

	a.Destroy()
	seenAtDestroy := sender.count()
	time.Sleep(50 * time.Millisecond)
	if got := sender.count(); got != seenAtDestroy {
		t.Fatalf("expected no RESPONSE sent after Destroy: before=%d after=%d", seenAtDestroy, got)
	}
}
