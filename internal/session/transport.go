package session

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize guards against a malformed or hostile length prefix turning
// into an unbounded allocation.
const maxFrameSize = 4 << 20 // 4 MiB

// Transport is any binary-capable bidirectional message channel with
// framing (§4.5). The reference implementation, below, is length-prefixed
// framing over a net.Conn (TCP or Unix), but any io.ReadWriteCloser works.
type Transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// FramedTransport implements Transport over any io.ReadWriteCloser using a
// 4-byte little-endian length prefix ahead of each frame.
type FramedTransport struct {
	conn io.ReadWriteCloser
}

// NewFramedTransport wraps conn (typically a net.Conn) in length-prefixed
// framing.
func NewFramedTransport(conn io.ReadWriteCloser) *FramedTransport {
	return &FramedTransport{conn: conn}
}

// ReadFrame reads one length-prefixed frame.
func (t *FramedTransport) ReadFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(t.conn, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("session: frame of %d bytes exceeds %d byte limit", n, maxFrameSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes frame prefixed with its 4-byte little-endian length.
func (t *FramedTransport) WriteFrame(frame []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(frame)))
	if _, err := t.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := t.conn.Write(frame)
	return err
}

// Close closes the underlying connection.
func (t *FramedTransport) Close() error {
	return t.conn.Close()
}
