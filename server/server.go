// Package server implements the Unix-socket accept loop: one process, one
// listener, serial client handling per spec.md §5 — a connected client
// holds the server until it disconnects or sends shutdown. There is no
// worker pool and no per-connection goroutine fan-out, matching the
// source's explicit single-threaded model; apart from engine/join's
// internal partition fan-out, the only other goroutine that touches the
// catalog is cmd-serve.go's optional data-directory watch, which reloads
// it in place.
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"k8s.io/klog/v2"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/exec"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/persist"
	"github.com/rpcpool/coldb/query"
	"github.com/rpcpool/coldb/session"
	"github.com/rpcpool/coldb/transport"
)

// Server accepts connections on a Unix domain socket and serves one at a
// time, dispatching each line of input through the executor.
type Server struct {
	SocketPath string
	Cat        *catalog.Catalog

	// DataDir is the database directory Save is called against after a
	// load completes, so the freshly loaded rows are durable immediately
	// rather than only on a clean shutdown.
	DataDir string
}

// New returns a Server bound to socketPath, serving against cat, persisting
// to dataDir after every successful load and on a shutdown request.
func New(socketPath string, cat *catalog.Catalog, dataDir string) *Server {
	return &Server{SocketPath: socketPath, Cat: cat, DataDir: dataDir}
}

// ListenAndServe runs the accept loop until ctx is canceled or a client
// sends shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	klog.Infof("server: listening on %s", s.SocketPath)
	exr := exec.New(s.Cat)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		shutdown := s.serveConn(ctx, exr, conn)
		if shutdown {
			return nil
		}
	}
}

// serveConn handles one client's entire request stream, returning true if
// the client requested shutdown.
func (s *Server) serveConn(ctx context.Context, exr *exec.Executor, conn net.Conn) bool {
	defer conn.Close()

	sess := session.New()
	r := bufio.NewReader(conn)

	for {
		msg, err := transport.ReadMessage(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				klog.V(2).Infof("server: connection %s closed: %v", sess.ID, err)
			}
			return false
		}

		op, st := query.Parse(string(msg.Payload))
		if !st.Kind.IsOK() {
			transport.WriteMessage(conn, transport.StatusReply(st))
			continue
		}

		if op.Kind == query.Load {
			st := s.handleLoad(op)
			transport.WriteMessage(conn, transport.StatusReply(st))
			continue
		}

		res := exr.Run(ctx, sess, op)
		if res.Status.Kind == errs.KindShutdownServer {
			if s.DataDir != "" {
				if err := persist.Save(s.Cat, s.DataDir); err != nil {
					klog.Errorf("server: save on shutdown failed: %v", err)
				}
			}
			transport.WriteMessage(conn, transport.Message{Status: transport.StatusShutdownServer})
			return true
		}
		if !res.Status.Kind.IsOK() {
			transport.WriteMessage(conn, transport.StatusReply(res.Status))
			continue
		}

		if res.Payload == "" {
			transport.WriteMessage(conn, transport.Message{Status: transport.StatusOkDone})
			continue
		}
		writePrintPayload(conn, res.Payload)
	}
}

// handleLoad runs `load("<path>")` via the persist package, then durably
// saves the catalog so the bulk-loaded rows survive a restart without
// waiting for a clean shutdown.
func (s *Server) handleLoad(op query.Op) errs.Status {
	if len(op.Args) != 1 {
		return errs.Wrap(errs.KindIncorrectFormat, "load: expects exactly one path argument")
	}
	path := strings.Trim(op.Args[0], `"`)

	if st := persist.LoadFile(s.Cat, path); !st.Kind.IsOK() {
		return st
	}
	if s.DataDir == "" {
		return errs.OK()
	}
	if err := persist.Save(s.Cat, s.DataDir); err != nil {
		klog.Errorf("server: save after load failed: %v", err)
		return errs.Wrap(errs.KindExecutionError, "load: save catalog: %v", err)
	}
	return errs.OK()
}

// writePrintPayload sends a Print operator's rendered rows as successive
// chunks, the last carrying OK_DONE, per spec.md §6.
func writePrintPayload(conn net.Conn, payload string) {
	const chunkSize = 4096
	for len(payload) > chunkSize {
		transport.WriteMessage(conn, transport.Message{Status: transport.StatusOkWaitForResponse, Payload: []byte(payload[:chunkSize])})
		payload = payload[chunkSize:]
	}
	transport.WriteMessage(conn, transport.Message{Status: transport.StatusOkDone, Payload: []byte(payload)})
}
