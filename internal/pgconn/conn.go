// SPDX-License-Identifier: Apache-2.0

// Package pgconn drives one physical PostgreSQL connection: startup,
// SCRAM-SHA-256 authentication, simple and extended query execution,
// pipelining, prepared-statement caching, cursors, COPY, and query
// cancellation. It speaks the wire format through internal/pgwire and
// performs no SQL generation of its own — callers hand it already
// transpiled SQL text and positional parameters.
package pgconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/qail-io/qail/internal/pgwire"
)

const readChunkSize = 16 * 1024

// Config describes how to reach and authenticate against one Postgres
// backend.
type Config struct {
	Host     string
	Port     int
	User     string
	Database string
	Password string

	// TLSConfig, if non-nil, requests an SSLRequest negotiation before
	// the startup message and wraps the connection once the server
	// agrees.
	TLSConfig *tls.Config

	ConnectTimeout time.Duration
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Conn is one authenticated, ready-for-query connection.
type Conn struct {
	nc  net.Conn
	buf []byte // unconsumed bytes read from nc, front-trimmed as messages decode

	processID int32
	secretKey int32
	params    map[string]string
	txStatus  pgwire.TransactionStatus

	stmts *stmtCache
}

// Connect dials addr, optionally negotiates TLS, sends the startup
// message, and completes authentication (trust or SCRAM-SHA-256 — MD5
// is rejected as insecure and unsupported, and a cleartext password
// request fails to decode as an unknown authentication type).
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", cfg.addr())
	if err != nil {
		return nil, fmt.Errorf("pgconn: dial %s: %w", cfg.addr(), err)
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	if cfg.TLSConfig != nil {
		nc, err = negotiateTLS(nc, cfg)
		if err != nil {
			_ = nc.Close()
			return nil, err
		}
	}

	c := &Conn{
		nc:     nc,
		params: map[string]string{},
		stmts:  newStmtCache(100),
	}

	if err := c.send(pgwire.EncodeStartup(map[string]string{
		"user":     cfg.User,
		"database": cfg.Database,
	})); err != nil {
		_ = nc.Close()
		return nil, err
	}

	if err := c.handleStartup(cfg); err != nil {
		_ = nc.Close()
		return nil, err
	}

	return c, nil
}

func negotiateTLS(nc net.Conn, cfg Config) (net.Conn, error) {
	if _, err := nc.Write(pgwire.EncodeSSLRequest()); err != nil {
		return nil, fmt.Errorf("pgconn: sending SSLRequest: %w", err)
	}
	resp := make([]byte, 1)
	if _, err := nc.Read(resp); err != nil {
		return nil, fmt.Errorf("pgconn: reading SSLRequest response: %w", err)
	}
	if resp[0] != 'S' {
		return nil, fmt.Errorf("pgconn: server refused TLS")
	}
	tlsConn := tls.Client(nc, cfg.TLSConfig)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, fmt.Errorf("pgconn: TLS handshake: %w", err)
	}
	return tlsConn, nil
}

func (c *Conn) handleStartup(cfg Config) error {
	var scram *scramClient

	for {
		msg, err := c.readMessage()
		if err != nil {
			return err
		}
		switch msg.Kind {
		case pgwire.KindAuthenticationOK:
			// continue reading ParameterStatus/BackendKeyData/ReadyForQuery
		case pgwire.KindAuthenticationMD5Password:
			return fmt.Errorf("pgconn: MD5 authentication is not supported, use SCRAM-SHA-256")
		case pgwire.KindAuthenticationSASL:
			if cfg.Password == "" {
				return fmt.Errorf("pgconn: password required for SCRAM authentication")
			}
			if !containsString(msg.SASLMechanisms, "SCRAM-SHA-256") {
				return fmt.Errorf("pgconn: server does not support SCRAM-SHA-256, offered: %v", msg.SASLMechanisms)
			}
			scram, err = newScramClient(cfg.User, cfg.Password)
			if err != nil {
				return err
			}
			if err := c.send(pgwire.EncodeSASLInitialResponse("SCRAM-SHA-256", scram.clientFirstMessage())); err != nil {
				return err
			}
		case pgwire.KindAuthenticationSASLContinue:
			if scram == nil {
				return fmt.Errorf("pgconn: received SASL continue without SASL init")
			}
			final, err := scram.processServerFirst(msg.SASLData)
			if err != nil {
				return fmt.Errorf("pgconn: SCRAM: %w", err)
			}
			if err := c.send(pgwire.EncodeSASLResponse(final)); err != nil {
				return err
			}
		case pgwire.KindAuthenticationSASLFinal:
			if scram != nil {
				if err := scram.verifyServerFinal(msg.SASLData); err != nil {
					return fmt.Errorf("pgconn: SCRAM: %w", err)
				}
			}
		case pgwire.KindParameterStatus:
			c.params[msg.ParamName] = msg.ParamValue
		case pgwire.KindBackendKeyData:
			c.processID = msg.ProcessID
			c.secretKey = msg.SecretKey
		case pgwire.KindReadyForQuery:
			c.txStatus = msg.TxStatus
			return nil
		case pgwire.KindErrorResponse:
			return msg.Error
		}
	}
}

func containsString(items []string, want string) bool {
	for _, s := range items {
		if s == want {
			return true
		}
	}
	return false
}

func (c *Conn) send(buf []byte) error {
	_, err := c.nc.Write(buf)
	if err != nil {
		return fmt.Errorf("pgconn: write: %w", err)
	}
	return nil
}

// readMessage blocks until one complete backend message is available
// and returns it, growing the internal buffer as needed.
func (c *Conn) readMessage() (*pgwire.Message, error) {
	for {
		msg, n, err := pgwire.Decode(c.buf)
		if err != nil {
			return nil, fmt.Errorf("pgconn: decode: %w", err)
		}
		if msg != nil {
			c.buf = c.buf[n:]
			return msg, nil
		}

		chunk := make([]byte, readChunkSize)
		k, err := c.nc.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("pgconn: read: %w", err)
		}
		c.buf = append(c.buf, chunk[:k]...)
	}
}

// ProcessID and SecretKey identify this backend for a CancelRequest
// issued on a fresh connection.
func (c *Conn) ProcessID() int32 { return c.processID }
func (c *Conn) SecretKey() int32 { return c.secretKey }

// ParameterStatus returns a server runtime parameter (e.g. "server_version")
// captured during startup.
func (c *Conn) ParameterStatus(name string) string { return c.params[name] }

// TxStatus reports the transaction status observed after the last
// ReadyForQuery.
func (c *Conn) TxStatus() pgwire.TransactionStatus { return c.txStatus }

// Close sends Terminate and closes the socket.
func (c *Conn) Close() error {
	_ = c.send(pgwire.EncodeTerminate())
	return c.nc.Close()
}

// Cancel opens a fresh connection to the same address and sends
// CancelRequest for the query currently running on conn. Per protocol,
// cancellation is best-effort and the new connection is closed
// immediately after.
func Cancel(ctx context.Context, cfg Config, processID, secretKey int32) error {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", cfg.addr())
	if err != nil {
		return fmt.Errorf("pgconn: cancel dial: %w", err)
	}
	defer nc.Close()
	_, err = nc.Write(pgwire.EncodeCancelRequest(processID, secretKey))
	if err != nil {
		return fmt.Errorf("pgconn: cancel write: %w", err)
	}
	return nil
}
