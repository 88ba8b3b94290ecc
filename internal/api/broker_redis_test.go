package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}

	ch := b.Subscribe("s1")
	b.Publish("s1", SolveEvent{Type: "solve.finished", Data: map[string]any{"outcome": "optimal"}})

	select {
	case evt := <-ch:
		if evt.Type != "solve.finished" {
			t.Fatalf("got %s", evt.Type)
		}
		if evt.Data["outcome"] != "optimal" {
			t.Fatalf("bad payload: %+v", evt.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}
}

func TestRedisBrokerUnsubscribeDuringPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}

	ch := b.Subscribe("s1")
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish("s1", SolveEvent{Type: "solve.incumbent"})
			}
		}
	}()

	// Tearing down mid-stream must not panic the pump goroutine.
	time.Sleep(20 * time.Millisecond)
	b.Unsubscribe("s1", ch)
	close(stop)
	<-done

	// The pump closes the channel once the pubsub is closed.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel never closed after unsubscribe")
		}
	}
}

func TestRedisBrokerBadURL(t *testing.T) {
	if _, err := NewRedisBroker("not-a-url"); err == nil {
		t.Fatal("expected parse error")
	}
}
