// internal/sensor/spidev/spidev_other.go

//go:build !linux

package spidev

import (
	"errors"

	"github.com/tamzrod/magscan/internal/frame"
	"github.com/tamzrod/magscan/internal/sensor"
)

var errUnsupported = errors.New("spidev: not supported on this platform")

type Link struct{}

func Open(cfg Config) (*Link, error) { return nil, errUnsupported }

func (l *Link) ReadWords(int) ([]frame.Word, error) { return nil, errUnsupported }
func (l *Link) Command(sensor.Opcode) error         { return errUnsupported }
func (l *Link) Close() error                        { return nil }
