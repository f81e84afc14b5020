// Package tracer accumulates trace-level lines for a single flush at the end
// of a session, instead of paying for formatting/printing on every call.
package tracer

import (
	"fmt"
	"io"
	"sync"
)

var (
	mu       sync.Mutex
	messages []string
)

// Log appends a message to the trace buffer.
func Log(msg string) {
	mu.Lock()
	defer mu.Unlock()
	messages = append(messages, msg)
}

// Flush prints the accumulated trace log to stdout and resets the buffer.
func Flush() {
	FlushTo(nil)
}

// FlushTo writes the accumulated trace log to w, or to stdout via
// fmt.Println when w is nil, and resets the buffer.
func FlushTo(w io.Writer) {
	mu.Lock()
	lines := messages
	messages = nil
	mu.Unlock()

	for _, msg := range lines {
		if w == nil {
			fmt.Println(msg)
			continue
		}
		fmt.Fprintln(w, msg)
	}
}
