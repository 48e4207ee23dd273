//go:build windows

package socketpair

import (
	"net"

	"github.com/pkg/errors"
)

// Windows has no AF_UNIX socketpair equivalent usable here; New always
// falls back to loopbackPair.
func nativePair() (net.Conn, net.Conn, error) {
	return nil, nil, errors.New("socketpair: no native socketpair on windows")
}
