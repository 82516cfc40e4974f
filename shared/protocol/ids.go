package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

var seq int64

// NewID returns a process-unique id: a monotonic counter in the high bits and
// 16 random bits below it so ids do not repeat across restarts.
func NewID() int64 {
	base := atomic.AddInt64(&seq, 1)
	var b [2]byte
	_, _ = rand.Read(b[:])
	return (base << 16) | int64(binary.BigEndian.Uint16(b[:]))
}
