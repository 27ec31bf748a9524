package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until context cancellation or listener close.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			serveConn(ctx, c, handler)
		}(conn)
	}
}

// MaxRequestBytes bounds one request line.
const MaxRequestBytes = 64 << 10

var (
	requestTimeout = 5 * time.Second
	writeTimeout   = 5 * time.Second
)

func serveConn(ctx context.Context, c net.Conn, handler Handler) {
	reply := func(resp Response) {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = json.NewEncoder(c).Encode(resp)
	}

	// A client that connects and never writes must not pin a goroutine.
	_ = c.SetReadDeadline(time.Now().Add(requestTimeout))
	reader := bufio.NewReader(io.LimitReader(c, MaxRequestBytes+1))
	line, err := reader.ReadBytes('\n')
	switch {
	case len(line) > MaxRequestBytes:
		reply(Response{OK: false, Error: fmt.Sprintf("request exceeds %d bytes", MaxRequestBytes)})
		return
	case err != nil:
		reply(Response{OK: false, Error: fmt.Sprintf("read request: %v", err)})
		return
	}
	_ = c.SetReadDeadline(time.Time{})

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		reply(Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		reply(Response{OK: false, Error: "request has no command"})
		return
	}

	reply(handler.Handle(ctx, req))
}
