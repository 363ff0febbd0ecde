// internal/transport/transporttest/server.go
package transporttest

import (
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/modbus-driver/internal/transport"
)

// ExceptionAddr and above answer with exception 0x02 (illegal data address).
const ExceptionAddr uint16 = 1000

// Server is a minimal Modbus TCP responder for FC 1/3/5/6 over a Memory.
type Server struct {
	Mem *Memory

	ln    net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

// StartServer listens on a random loopback port until the test ends.
func StartServer(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{Mem: NewMemory(), ln: ln}
	go s.accept()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Endpoint() transport.Endpoint {
	addr := s.ln.Addr().(*net.TCPAddr)
	return transport.Endpoint{Host: addr.IP.String(), Port: addr.Port, Timeout: time.Second}
}

// Host and Port for building configs.
func (s *Server) Host() string { return s.Endpoint().Host }
func (s *Server) Port() int    { return s.Endpoint().Port }

func (s *Server) Addr() string {
	ep := s.Endpoint()
	return net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
}

// ConnCount returns the number of accepted, not yet dropped connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// DropConns closes every accepted connection from the server side.
func (s *Server) DropConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

// Close stops accepting and drops every connection. Safe to call before cleanup.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.DropConns()
}

func (s *Server) accept() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()
		go s.serve(c)
	}
}

func (s *Server) serve(c net.Conn) {
	defer c.Close()
	for {
		// MBAP: TID(2) PID(2) LEN(2) UID(1)
		var mbap [7]byte
		if _, err := io.ReadFull(c, mbap[:]); err != nil {
			return
		}
		n := int(binary.BigEndian.Uint16(mbap[4:6])) - 1
		if n < 5 {
			return
		}
		pdu := make([]byte, n)
		if _, err := io.ReadFull(c, pdu); err != nil {
			return
		}

		resp := s.handle(pdu)

		out := make([]byte, 7+len(resp))
		copy(out[0:4], mbap[0:4])
		binary.BigEndian.PutUint16(out[4:6], uint16(len(resp)+1))
		out[6] = mbap[6]
		copy(out[7:], resp)
		if _, err := c.Write(out); err != nil {
			return
		}
	}
}

func (s *Server) handle(pdu []byte) []byte {
	fc := pdu[0]
	addr := binary.BigEndian.Uint16(pdu[1:3])
	arg := binary.BigEndian.Uint16(pdu[3:5])

	if addr >= ExceptionAddr {
		return []byte{fc | 0x80, 0x02}
	}

	switch fc {
	case 1:
		bc := (int(arg) + 7) / 8
		out := make([]byte, 2+bc)
		out[0] = fc
		out[1] = byte(bc)
		for i := 0; i < int(arg); i++ {
			if s.Mem.Coil(addr + uint16(i)) {
				out[2+i/8] |= 1 << (i % 8)
			}
		}
		return out
	case 3:
		out := make([]byte, 2+int(arg)*2)
		out[0] = fc
		out[1] = byte(arg * 2)
		for i := 0; i < int(arg); i++ {
			binary.BigEndian.PutUint16(out[2+2*i:], s.Mem.Register(addr+uint16(i)))
		}
		return out
	case 5:
		s.Mem.SetCoil(addr, arg == 0xFF00)
		return append([]byte(nil), pdu[:5]...)
	case 6:
		s.Mem.SetRegister(addr, arg)
		return append([]byte(nil), pdu[:5]...)
	}
	return []byte{fc | 0x80, 0x01}
}
