// internal/webhook/transport.go
package webhook

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// maxInterfaceName is IFNAMSIZ minus the trailing NUL
const maxInterfaceName = 15

// TransportConfig controls how webhook requests leave the host
type TransportConfig struct {
	Timeout time.Duration
	// Interface, when set, pins outgoing connections to one network
	// interface, e.g. to reach the internet over a backup link while the
	// default route is down.
	Interface string
}

// NewHTTPClient creates the HTTP client used for deliveries
func NewHTTPClient(cfg TransportConfig) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
	}

	if cfg.Interface != "" {
		if len(cfg.Interface) > maxInterfaceName {
			return nil, fmt.Errorf("interface name %q longer than %d bytes", cfg.Interface, maxInterfaceName)
		}

		ip, err := interfaceIPv4(cfg.Interface)
		if err != nil {
			return nil, err
		}
		control, err := bindToDevice(cfg.Interface)
		if err != nil {
			return nil, err
		}

		dialer.LocalAddr = &net.TCPAddr{IP: ip}
		dialer.Control = control
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

// interfaceIPv4 returns the first IPv4 address assigned to name
func interfaceIPv4(name string) (net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %s: %w", name, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("addresses of %s: %w", name, err)
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4, nil
			}
		}
	}

	return nil, fmt.Errorf("interface %s has no IPv4 address", name)
}
