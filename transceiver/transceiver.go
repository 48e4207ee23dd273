// Package transceiver implements the asynchronous, non-blocking TCP
// message transceiver engine (spec.md §4.5): a connect-or-accept
// endpoint exchanging framed Messages with a peer through two FIFO
// event queues. Grounded on the host/worker-goroutine/channel
// architecture in daabr-chrome-vision's pkg/cdp/{session,transport}.go,
// generalized from a single subprocess pipe to an arbitrary TCP peer
// and from JSON-over-NUL framing to the length-prefixed MUSCLE frame.
//
// The source spec describes the worker as a single-threaded
// select()-style readiness loop. Go's runtime netpoller already owns
// net.Conn file descriptors non-blockingly; re-implementing a manual
// poll/select on top of it would be both redundant and unsafe. Instead
// each connection is driven by one blocking reader goroutine and one
// blocking writer goroutine, which is the idiomatic Go expression of
// the same ordering and disconnect-policy guarantees.
package transceiver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jfriesne/muscle/message"
	"github.com/jfriesne/muscle/socketpair"
)

// outItem is one out_q entry: either a Message to send or the Shutdown
// sentinel (spec.md §9: "not a smuggled exception").
type outItem struct {
	shutdown bool
	msg      *message.Message
}

// Transceiver owns one TCP endpoint and the two FIFO event queues
// described in spec.md §4.5.
type Transceiver struct {
	hostname   string // empty => passive
	port       int
	acceptFrom string
	preferIPv6 bool
	logger     *logrus.Logger

	outQ *fifo[outItem]
	inQ  *fifo[Event]

	notifWorker net.Conn // worker's end; written to on every inQ push
	notifHost   net.Conn // returned by NotificationHandle

	boundPort int32 // atomic; meaningful for passive endpoints

	destroyed  atomic.Bool
	destroyOne sync.Once
	cancelDial context.CancelFunc

	listener net.Listener // passive mode only

	wg sync.WaitGroup
}

func newTransceiver(hostname string, port int, opts ...Option) *Transceiver {
	t := &Transceiver{
		hostname: hostname,
		port:     port,
		logger:   logrus.New(),
		outQ:     newFifo[outItem](),
		inQ:      newFifo[Event](),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewActive constructs an active endpoint: Start will dial hostname:port,
// retrying once with the opposite IP family on failure (spec.md §4.5.1).
func NewActive(hostname string, port int, opts ...Option) *Transceiver {
	return newTransceiver(hostname, port, opts...)
}

// NewPassive constructs a passive endpoint: Start will bind and listen
// on port (an ephemeral port when port == 0), restricted to the address
// given by WithAcceptFrom if present.
func NewPassive(port int, opts ...Option) *Transceiver {
	return newTransceiver("", port, opts...)
}

// Start creates the notification socket pair and launches the worker.
// It returns once setup (including, for passive endpoints, binding the
// listening socket) has completed; connecting or accepting continues
// asynchronously.
func (t *Transceiver) Start() error {
	notifWorker, notifHost, err := socketpair.New()
	if err != nil {
		return errors.Wrap(err, "transceiver: create notification socket pair")
	}
	t.notifWorker = notifWorker
	t.notifHost = notifHost

	if t.hostname == "" {
		return t.startPassive()
	}
	return t.startActive()
}

// Port reports the endpoint's port. For passive endpoints this is the
// actual bound local port, resolving the ephemeral port chosen by the OS
// when constructed with port 0; for active endpoints it echoes the
// configured remote port.
func (t *Transceiver) Port() int {
	if t.hostname == "" {
		return int(atomic.LoadInt32(&t.boundPort))
	}
	return t.port
}

// NotificationHandle returns the host-side endpoint of the notification
// socket. The worker writes one byte to its side every time it posts an
// event (coalescing is permitted); the host may Read from this handle
// to wait for activity using ordinary blocking I/O, but must never
// Write to or Close it itself (spec.md §5).
func (t *Transceiver) NotificationHandle() net.Conn {
	return t.notifHost
}

// Send enqueues msg for transmission and returns immediately; it never
// blocks and never fails on its own (spec.md §5: "Host: enqueues
// without blocking"). A Message enqueued after Destroy has been called
// is silently dropped.
func (t *Transceiver) Send(msg *message.Message) error {
	t.outQ.push(outItem{msg: msg})
	return nil
}

// NextEvent dequeues the next in_q item. With block == true it waits
// until an event is available or the Transceiver is fully destroyed; ok
// is false only in the latter case.
func (t *Transceiver) NextEvent(block bool) (Event, bool) {
	return t.inQ.pop(block)
}

// Destroy enqueues the Shutdown sentinel, unblocks any in-progress
// accept or dial, waits for the worker to exit, then closes the incoming
// event queue and both ends of the notification socket pair. It is
// idempotent.
func (t *Transceiver) Destroy() {
	t.destroyOne.Do(func() {
		t.destroyed.Store(true)
		t.outQ.push(outItem{shutdown: true})
		if t.cancelDial != nil {
			t.cancelDial()
		}
		if t.listener != nil {
			t.listener.Close()
		}
		t.wg.Wait()
		t.inQ.close()
		if t.notifWorker != nil {
			t.notifWorker.Close()
		}
		if t.notifHost != nil {
			t.notifHost.Close()
		}
	})
}

func (t *Transceiver) pushEvent(ev Event) {
	t.inQ.push(ev)
	if t.notifWorker != nil {
		t.notifWorker.Write([]byte{0}) // best-effort wakeup; errors are expected post-Destroy.
	}
}

func (t *Transceiver) log() *logrus.Entry {
	return t.logger.WithField("component", "transceiver")
}
