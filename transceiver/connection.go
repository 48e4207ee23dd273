package transceiver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// startActive launches the dial-then-serve worker for an active
// endpoint (spec.md §4.5.1).
func (t *Transceiver) startActive() error {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancelDial = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		conn, err := dialWithFamilyRetry(ctx, t.hostname, t.port, t.preferIPv6)
		if err != nil {
			t.log().WithError(err).Warn("active connect failed")
			if !t.destroyed.Load() {
				t.pushEvent(Event{Kind: Disconnected})
			}
			return
		}
		t.pushEvent(Event{Kind: Connected})
		t.serveConnection(conn)
	}()
	return nil
}

// dialWithFamilyRetry attempts the first address of the preferred
// family, retrying once with the opposite family on failure (spec.md
// §4.5.1: "attempt an asynchronous connect to the first resolved
// address, preferring the configured family ..., and retrying once
// with the opposite family on failure").
func dialWithFamilyRetry(ctx context.Context, hostname string, port int, preferIPv6 bool) (net.Conn, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return nil, err
	}

	var v4, v6 []net.IPAddr
	for _, a := range addrs {
		if a.IP.To4() != nil {
			v4 = append(v4, a)
		} else {
			v6 = append(v6, a)
		}
	}

	first, second := v4, v6
	if preferIPv6 {
		first, second = v6, v4
	}

	var d net.Dialer
	var lastErr error
	for _, group := range [][]net.IPAddr{first, second} {
		if len(group) == 0 {
			continue
		}
		target := net.JoinHostPort(group[0].String(), strconv.Itoa(port))
		conn, err := d.DialContext(ctx, "tcp", target)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("transceiver: host %q resolved to no usable address", hostname)
	}
	return nil, lastErr
}

// startPassive launches the accept loop for a passive endpoint
// (spec.md §4.5.1, §4.5.4).
func (t *Transceiver) startPassive() error {
	addr := net.JoinHostPort(t.acceptFrom, strconv.Itoa(t.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	t.listener = ln
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	boundPort, _ := strconv.Atoi(portStr)
	atomic.StoreInt32(&t.boundPort, int32(boundPort))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if t.destroyed.Load() {
					return
				}
				t.log().WithError(err).Warn("accept failed")
				continue
			}
			t.pushEvent(Event{Kind: Connected})
			t.serveConnection(conn)
			if t.destroyed.Load() {
				return
			}
			// spec.md §9 open question: a disconnected passive endpoint
			// continues waiting for the next accept.
		}
	}()
	return nil
}

// serveConnection drives one connection's reader and writer goroutines
// to completion and emits Disconnected exactly once, unless the
// connection ended because of a Destroy-triggered shutdown.
func (t *Transceiver) serveConnection(conn net.Conn) {
	connID := xid.New().String()
	log := t.log().WithField("connection", connID)

	// ctx is canceled the instant either goroutine decides the connection
	// is over, so the other one stops waiting immediately instead of
	// blocking on out_q until the next Send or Destroy (spec.md §4.5.4,
	// §8 property 6: a peer-initiated disconnect must surface on its own).
	ctx, cancel := context.WithCancel(context.Background())
	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() {
			conn.Close()
			cancel()
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			item, ok := t.outQ.popContext(ctx)
			if !ok {
				closeConn()
				return
			}
			if item.shutdown {
				closeConn()
				return
			}
			if err := writeFrame(conn, item.msg); err != nil {
				log.WithError(err).Debug("write failed")
				closeConn()
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			msg, err := readFrame(conn)
			if err != nil {
				closeConn()
				return
			}
			t.pushEvent(Event{Kind: Received, Message: msg})
		}
	}()

	wg.Wait()

	if !t.destroyed.Load() {
		log.Debug("connection ended")
		t.pushEvent(Event{Kind: Disconnected})
	}
}
