package tor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake performed by CheckConnection.
const checkProxyTimeout = 2 * time.Second

// DefaultTimeout is the HTTP client timeout used when none is given.
const DefaultTimeout = 30 * time.Second

// Client routes connections through a SOCKS5 proxy such as Tor.
type Client struct {
	// proxyAddress is the SOCKS5 proxy address in "host:port" format.
	proxyAddress string

	// dialer is the SOCKS5 dialer, created once.
	dialer proxy.Dialer

	// timeout is the timeout of HTTP clients built by this client.
	timeout time.Duration

	// insecureOnion skips TLS verification for .onion hosts, which
	// usually serve self-signed certificates.
	insecureOnion bool

	// probeHost is the host named in the CONNECT request of CheckConnection.
	probeHost string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout. Zero disables the timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithInsecureOnion skips TLS certificate verification for .onion hosts.
// Other hosts are always verified.
func WithInsecureOnion(insecure bool) ClientOption {
	return func(c *Client) {
		c.insecureOnion = insecure
	}
}

// WithProbeHost sets the host used in the CheckConnection CONNECT request.
func WithProbeHost(host string) ClientOption {
	return func(c *Client) {
		if host != "" {
			c.probeHost = host
		}
	}
}

// NewClient creates a client for the SOCKS5 proxy at proxyAddress.
//
// The address is validated but the proxy is not contacted; call
// CheckConnection to verify that it is running.
func NewClient(proxyAddress string, opts ...ClientOption) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not require authentication.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	c := &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      DefaultTimeout,
		probeHost:    "example.com",
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 protocol constants
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthNoAccept  = 0xFF
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03
)

// CheckConnection verifies that the proxy speaks SOCKS5 without
// authentication and answers a CONNECT request. Whether the CONNECT
// itself succeeds does not matter.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version, one method, no authentication.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if isTimeout(err) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if authResp[0] != socks5Version || authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT request: version, cmd, reserved, addr type, addr, port.
	host := c.probeHost
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00,
		socks5AddrTypeDomID,
		byte(len(host)),
	}
	connectReq = append(connectReq, []byte(host)...)
	connectReq = append(connectReq, 0x00, 80)

	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	// Any reply code counts: the proxy processed the request.
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if isTimeout(err) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// NewHTTPClient creates an HTTP client whose connections go through the proxy.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: c.DialContext,
		// Each connection is a proxy circuit, so keep the pool small.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
	}

	if c.insecureOnion {
		transport.DialTLSContext = c.dialTLSOnion
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
	}
}

// dialTLSOnion dials TLS through the proxy. Certificates of .onion hosts
// are not verified; the onion address authenticates the service.
func (c *Client) dialTLSOnion(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	raw, err := c.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	if IsOnionHost(host) {
		cfg.InsecureSkipVerify = true //nolint:gosec // .onion services use self-signed certificates
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return conn, nil
}

// DialContext establishes a TCP connection through the proxy.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}
