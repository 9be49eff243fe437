// internal/webhook/bind_linux.go
//go:build linux

package webhook

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// bindToDevice returns a dialer control hook setting SO_BINDTODEVICE
func bindToDevice(iface string) (func(network, address string, c syscall.RawConn) error, error) {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.BindToDevice(int(fd), iface)
		})
		if err != nil {
			return err
		}
		return sockErr
	}, nil
}
