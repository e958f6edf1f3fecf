package chash

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's id by parsing the header
// line of runtime.Stack's output. It exists solely to back the
// best-effort reentrancy guard on compute/merge callbacks (§4.3, §6). Get
// and Remove never call it; Put and PutIfAbsent call it once per insert
// into a non-empty list bin, so a callback re-entering through them panics
// instead of deadlocking.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
