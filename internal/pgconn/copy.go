// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"context"
	"fmt"
	"io"

	"github.com/qail-io/qail/internal/pgwire"
)

// CopyFrom streams src through a COPY ... FROM STDIN statement,
// sending it as a sequence of CopyData messages and signalling
// CopyDone when src is exhausted. It returns the number of rows the
// server reports having copied.
func (c *Conn) CopyFrom(ctx context.Context, copySQL string, src io.Reader) (uint64, error) {
	if err := c.send(pgwire.EncodeQuery(copySQL)); err != nil {
		return 0, err
	}

	if err := c.awaitCopyInResponse(); err != nil {
		return 0, err
	}

	buf := make([]byte, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			_ = c.send(pgwire.EncodeCopyFail(err.Error()))
			return 0, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			if werr := c.send(pgwire.EncodeCopyData(buf[:n])); werr != nil {
				return 0, werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = c.send(pgwire.EncodeCopyFail(err.Error()))
			return 0, fmt.Errorf("pgconn: reading COPY source: %w", err)
		}
	}

	if err := c.send(pgwire.EncodeCopyDone()); err != nil {
		return 0, err
	}
	res, err := c.collectResult(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (c *Conn) awaitCopyInResponse() error {
	for {
		msg, err := c.readMessage()
		if err != nil {
			return err
		}
		switch msg.Kind {
		case pgwire.KindCopyInResponse:
			return nil
		case pgwire.KindErrorResponse:
			return msg.Error
		}
	}
}

// CopyTo streams the rows of a COPY ... TO STDOUT statement into dst,
// returning once the server signals CopyDone.
func (c *Conn) CopyTo(ctx context.Context, copySQL string, dst io.Writer) error {
	if err := c.send(pgwire.EncodeQuery(copySQL)); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := c.readMessage()
		if err != nil {
			return err
		}
		switch msg.Kind {
		case pgwire.KindCopyOutResponse:
			// ready to stream; nothing to act on
		case pgwire.KindCopyData:
			if _, werr := dst.Write(msg.CopyBytes); werr != nil {
				return fmt.Errorf("pgconn: writing COPY destination: %w", werr)
			}
		case pgwire.KindCopyDone:
			// followed by CommandComplete + ReadyForQuery
		case pgwire.KindCommandComplete:
			// row count available via CommandComplete but COPY TO
			// callers consume the stream itself, not a row count
		case pgwire.KindErrorResponse:
			return msg.Error
		case pgwire.KindReadyForQuery:
			c.txStatus = msg.TxStatus
			return nil
		}
	}
}
