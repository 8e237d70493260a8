// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"github.com/momentics/hioload-iocp/api"
)

// LoadAcceptEx returns a fake AcceptEx that records an OpAccept.
func (s *Sys) LoadAcceptEx(fd api.Fd) (api.AcceptExFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallLoadAcceptEx); err != nil {
		return nil, err
	}
	return s.acceptEx, nil
}

func (s *Sys) acceptEx(listen, accept api.Fd, buf []byte, addrLen uint32, ov *api.Overlapped) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallAcceptEx); err != nil {
		return err
	}
	if _, err := s.sock(listen); err != nil {
		return err
	}
	s.issued = append(s.issued, &Op{Kind: OpAccept, Fd: listen, Accept: accept, Buf: buf, AddrLen: addrLen, Overlapped: ov})
	return nil
}

// LoadSockaddrs returns the parser matching CompleteAccept's buffer layout:
// each address slot holds a length byte followed by the address bytes.
func (s *Sys) LoadSockaddrs(fd api.Fd) (api.SockaddrsFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(CallLoadSockaddrs); err != nil {
		return nil, err
	}
	return parseSockaddrs, nil
}

func parseSockaddrs(buf []byte, addrLen uint32) ([]byte, []byte) {
	slot := func(off int) []byte {
		n := int(buf[off])
		return buf[off+1 : off+1+n]
	}
	return slot(0), slot(int(addrLen))
}

func fillSlot(buf []byte, off int, addr []byte, addrLen uint32) {
	if len(addr) >= int(addrLen) || len(addr) > 255 {
		panic("fake: address does not fit its slot")
	}
	buf[off] = byte(len(addr))
	copy(buf[off+1:], addr)
}

// CompleteAccept finishes an accept op as if a peer with address remote had
// connected to local, returning the completion packet to feed the layer.
func (s *Sys) CompleteAccept(op *Op, local, remote []byte) api.Completion {
	fillSlot(op.Buf, 0, local, op.AddrLen)
	fillSlot(op.Buf, int(op.AddrLen), remote, op.AddrLen)
	return s.Complete(op, 0, nil)
}

// Complete retires op with the given transfer count and status.
func (s *Sys) Complete(op *Op, bytes uint32, err error) api.Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.issued {
		if o == op {
			s.issued = append(s.issued[:i], s.issued[i+1:]...)
			break
		}
	}
	return api.Completion{Key: uintptr(op.Fd), Overlapped: op.Overlapped, Bytes: bytes, Err: err}
}
