// Package socketpair provides a connected pair of stream sockets used
// for cross-goroutine wakeups (spec.md §4.4), grounded on the
// build-tag/x-sys-unix idiom in runZeroInc-sockstats's pkg/kernel and
// pkg/tcpinfo.
package socketpair

import (
	"net"

	"github.com/pkg/errors"
)

// New returns two connected net.Conns, a and b. On platforms with a
// native socketpair syscall this is a single AF_UNIX SOCK_STREAM pair;
// if that syscall is unavailable (or fails) it falls back to a loopback
// TCP pair, preferring IPv6 ("::1") and falling back to IPv4
// ("127.0.0.1"): listen on an ephemeral port, connect from a, accept
// into b, close the listener. Both sides are full net.Conns — Go's
// runtime netpoller already multiplexes them non-blockingly underneath;
// callers choose blocking behavior per-call the same way they would for
// any net.Conn, via Read/Write or SetDeadline.
func New() (a, b net.Conn, err error) {
	a, b, err = nativePair()
	if err == nil {
		return a, b, nil
	}
	return loopbackPair()
}

// loopbackPair implements the fallback described in spec.md §4.4.
func loopbackPair() (net.Conn, net.Conn, error) {
	var lastErr error
	for _, addr := range []string{"[::1]:0", "127.0.0.1:0"} {
		a, b, err := tryLoopbackPair(addr)
		if err == nil {
			return a, b, nil
		}
		lastErr = err
	}
	return nil, nil, errors.Wrap(lastErr, "socketpair: no loopback family available")
}

func tryLoopbackPair(addr string) (net.Conn, net.Conn, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "socketpair: listen")
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	a, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return nil, nil, errors.Wrap(err, "socketpair: dial")
	}
	select {
	case b := <-accepted:
		return a, b, nil
	case err := <-acceptErr:
		a.Close()
		return nil, nil, errors.Wrap(err, "socketpair: accept")
	}
}
