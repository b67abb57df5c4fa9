package readiness

import "testing"

func TestNotifyDisabledIsNoop(t *testing.T) {
	n := New(false)
	n.Notify() // must not panic or block
	n.Notify()
}

func TestNotifyIdempotent(t *testing.T) {
	n := New(true)
	n.Notify()
	if !n.sent {
		t.Fatalf("expected sent=true after first Notify")
	}
	n.Notify() // second call is a no-op, no assertion needed beyond no-panic
}
