// internal/webhook/bind_other.go
//go:build !linux

package webhook

import (
	"errors"
	"syscall"
)

func bindToDevice(string) (func(network, address string, c syscall.RawConn) error, error) {
	return nil, errors.New("binding to a network interface is only supported on linux")
}
