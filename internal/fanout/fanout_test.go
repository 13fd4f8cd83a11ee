package fanout

import (
	"slices"
	"testing"
)

func TestRegistry_PublishInOrder(t *testing.T) {
	t.Parallel()

	var r Registry[int]
	var got []string
	r.Subscribe(func(v int) { got = append(got, "a") })
	r.Subscribe(func(v int) { got = append(got, "b") })
	r.Subscribe(func(v int) { got = append(got, "c") })

	r.Publish(1)

	if want := []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("publish order: got %v, want %v", got, want)
	}
}

func TestRegistry_Unsubscribe(t *testing.T) {
	t.Parallel()

	var r Registry[string]
	var calls int
	unsub := r.Subscribe(func(string) { calls++ })
	r.Subscribe(func(string) {})

	r.Publish("x")
	unsub()
	unsub()
	r.Publish("y")

	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if r.Len() != 1 {
		t.Errorf("Len: got %d, want 1", r.Len())
	}
}

func TestRegistry_UnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()

	var r Registry[int]
	var unsub func()
	var first, second int
	unsub = r.Subscribe(func(int) {
		first++
		unsub()
	})
	r.Subscribe(func(int) { second++ })

	r.Publish(1)
	r.Publish(2)

	if first != 1 {
		t.Errorf("self-removing subscriber: got %d calls, want 1", first)
	}
	if second != 2 {
		t.Errorf("remaining subscriber: got %d calls, want 2", second)
	}
}
