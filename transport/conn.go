package transport

import (
	"net"
	"os"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed         = net.ErrClosed
	ErrDeadlineExceeded   = os.ErrDeadlineExceeded
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrConnRefused        = errors.New("connection refused")
	ErrNetUnreachable     = errors.New("network is unreachable")
	ErrAddrAlreadyInUse   = errors.New("address already in use")
)
