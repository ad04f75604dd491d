package env

import (
	"bytes"
	"sync"

	"github.com/vexlang/vex/internal/ast"
)

// The environment owns a small buffer pool shared by the pieces that format
// binding data: the store's list encoding and callers rendering values for
// interactive echoing. Rent on entry, Return on every exit path.

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// RentBuffer takes an empty buffer from the pool.
func RentBuffer() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

// ReturnBuffer resets buf and hands it back. Oversized buffers are dropped so
// one huge script does not pin memory for the rest of the session.
func ReturnBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1<<16 {
		return
	}
	buf.Reset()
	bufPool.Put(buf)
}

var argsPool = sync.Pool{
	New: func() interface{} { return new([]ast.Node) },
}

// RentArgs takes an empty node list for collecting call arguments while a
// call site is being compiled. The list is scratch only: the caller copies
// the collected nodes into the tree and Returns the list on every exit path,
// normal or panicking.
func RentArgs() *[]ast.Node {
	return argsPool.Get().(*[]ast.Node)
}

// ReturnArgs clears the list and hands it back. Oversized lists are dropped.
func ReturnArgs(list *[]ast.Node) {
	if cap(*list) > 64 {
		return
	}
	*list = (*list)[:0]
	argsPool.Put(list)
}

// joinList encodes a name list for storage using a pooled buffer.
func joinList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	buf := RentBuffer()
	defer ReturnBuffer(buf)
	for i, it := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(it)
	}
	return buf.String()
}
