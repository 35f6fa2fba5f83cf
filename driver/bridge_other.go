//go:build !linux

package driver

import (
	"errors"
	"net/netip"
)

// Bridge is unsupported outside Linux: AF_PACKET raw sockets are a
// Linux-specific facility.
type Bridge struct{}

func Open(name string) (*Bridge, error) { return nil, errors.ErrUnsupported }

func (br *Bridge) Write(frame []byte) (int, error) { return 0, errors.ErrUnsupported }
func (br *Bridge) Read(buf []byte) (int, error)    { return 0, errors.ErrUnsupported }
func (br *Bridge) Close() error                    { return errors.ErrUnsupported }
func (br *Bridge) Name() string                    { return "" }

func (br *Bridge) HardwareAddress6() (hw [6]byte, err error) { return hw, errors.ErrUnsupported }
func (br *Bridge) Addr() (netip.Prefix, error)               { return netip.Prefix{}, errors.ErrUnsupported }
func (br *Bridge) MTU() (int, error)                         { return 0, errors.ErrUnsupported }
