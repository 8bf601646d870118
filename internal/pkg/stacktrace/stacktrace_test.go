package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/mailrelay/internal/pkg/mail.(*Queue).work(0xc000)
	/src/mailrelay/internal/pkg/mail/queue.go:120 +0x1f
net/http.HandlerFunc.ServeHTTP(0x0)
	/usr/local/go/src/net/http/server.go:2294 +0x29
github.com/shandysiswandi/mailrelay/internal/relay/inbound.(*Endpoint).Submit(0xc000)
	/src/mailrelay/internal/relay/inbound/http_endpoint.go:42
`)

	assert.Equal(t, []string{
		"internal/pkg/mail/queue.go:120",
		"internal/relay/inbound/http_endpoint.go:42",
	}, InternalPaths(stack))
	assert.Empty(t, InternalPaths([]byte("goroutine 1 [running]:\nmain.main()\n")))
}
