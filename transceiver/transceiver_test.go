package transceiver

import "testing"

func TestFifoBlockingPopUnblocksOnPush(t *testing.T) {
	f := newFifo[int]()
	done := make(chan int, 1)
	go func() {
		v, ok := f.pop(true)
		if !ok {
			done <- -1
			return
		}
		done <- v
	}()
	f.push(42)
	if got := <-done; got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestFifoNonBlockingPopOnEmpty(t *testing.T) {
	f := newFifo[int]()
	if _, ok := f.pop(false); ok {
		t.Fatalf("expected ok=false on empty non-blocking pop")
	}
}

func TestFifoCloseUnblocksPop(t *testing.T) {
	f := newFifo[int]()
	done := make(chan bool, 1)
	go func() {
		_, ok := f.pop(true)
		done <- ok
	}()
	f.close()
	if ok := <-done; ok {
		t.Fatalf("expected ok=false after close with no items")
	}
}

func TestFifoPreservesFIFOOrder(t *testing.T) {
	f := newFifo[int]()
	for i := 0; i < 5; i++ {
		f.push(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := f.pop(false)
		if !ok || v != i {
			t.Fatalf("pop %d: got (%d, %v), want (%d, true)", i, v, ok, i)
		}
	}
}
