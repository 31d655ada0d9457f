package system

import (
	"context"
	"errors"
	"testing"
)

type recordedService struct {
	name     string
	startErr error
	log      *[]string
}

func (s *recordedService) Name() string { return s.name }

func (s *recordedService) Start(context.Context) error {
	*s.log = append(*s.log, "start:"+s.name)
	return s.startErr
}

func (s *recordedService) Stop(context.Context) error {
	*s.log = append(*s.log, "stop:"+s.name)
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	var log []string
	m := NewManager()

	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordedService{name: name, log: &log}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(log) != len(want) {
		t.Fatalf("unexpected log %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("at %d: got %s, want %s (full log %v)", i, log[i], want[i], log)
		}
	}
}

func TestManagerStartFailureUnwinds(t *testing.T) {
	var log []string
	m := NewManager()

	if err := m.Register(&recordedService{name: "ok", log: &log}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(&recordedService{name: "boom", startErr: errors.New("nope"), log: &log}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start:ok", "start:boom", "stop:ok"}
	if len(log) != len(want) {
		t.Fatalf("unexpected log %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("at %d: got %s, want %s", i, log[i], want[i])
		}
	}
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "dup"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "dup"}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if err := m.Register(NoopService{}); err == nil {
		t.Fatal("expected empty name error")
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	m := NewManager()
	if err := m.Register(NoopService{ServiceName: "idle"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
