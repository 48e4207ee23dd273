//go:build unix

package socketpair

import (
	"net"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func nativePair() (net.Conn, net.Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "socketpair: native socketpair")
	}
	a, err := fdToConn(fds[0])
	if err != nil {
		unix.Close(fds[1])
		return nil, nil, err
	}
	b, err := fdToConn(fds[1])
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

func fdToConn(fd int) (net.Conn, error) {
	f := os.NewFile(uintptr(fd), "socketpair")
	conn, err := net.FileConn(f)
	f.Close() // net.FileConn dup()s the fd; our copy is no longer needed.
	if err != nil {
		return nil, errors.Wrap(err, "socketpair: FileConn")
	}
	return conn, nil
}
