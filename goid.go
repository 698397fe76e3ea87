package corectx

import (
	"runtime"
	"strconv"
	"strings"
)

// goid returns the current goroutine's runtime id. Go has no native
// thread-local storage; this is the same technique
// centraunit-digo/goroutine.go uses to key its per-goroutine resolution
// state, reused here to key the per-goroutine CurrentContext slot (tls.go).
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id, _ := strconv.ParseInt(idField, 10, 64)
	return id
}
