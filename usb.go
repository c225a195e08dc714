package vedirect

/*
 * VE.Direct Library in Go
 *
 * This file is part of govedirect, a Go decoder for the Victron VE.Direct
 * serial protocol used by solar charge controllers and battery monitors.
 *
 * License: MIT License
 * Author: Adrian Shajkofci, 2024
 */

import (
	"fmt"
	"strings"

	"github.com/albenik/go-serial/v2"
	"github.com/albenik/go-serial/v2/enumerator"
)

// VE.Direct to USB interface (FTDI FT231X)
const (
	VendorID  = "0403"
	ProductID = "6015"
)

// VE.Direct link settings: 19200 baud, 8N1.
const (
	BaudRate      = 19200
	ReadTimeoutMs = 1000
)

// ListPorts returns every serial port the system knows about.
func ListPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return ports, nil
}

// FindUSBPort returns the first USB port with the given vendor and product.
func FindUSBPort(vid, pid string) (*enumerator.PortDetails, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, ErrNoSerialPorts
	}
	for _, port := range ports {
		if port.IsUSB && strings.EqualFold(port.VID, vid) && strings.EqualFold(port.PID, pid) {
			return port, nil
		}
	}
	return nil, ErrNoPort
}

// OpenPort opens name with the VE.Direct line settings at the given baud rate.
func OpenPort(name string, baud int) (*serial.Port, error) {
	if baud <= 0 {
		baud = BaudRate
	}
	port, err := serial.Open(name,
		serial.WithBaudrate(baud),
		serial.WithDataBits(8),
		serial.WithParity(serial.NoParity),
		serial.WithStopBits(serial.OneStopBit),
		serial.WithReadTimeout(ReadTimeoutMs),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return port, nil
}

// GetUSBPort finds and opens the VE.Direct USB interface.
func GetUSBPort(vid, pid string, baud int) (*serial.Port, *enumerator.PortDetails, error) {
	details, err := FindUSBPort(vid, pid)
	if err != nil {
		return nil, nil, err
	}
	port, err := OpenPort(details.Name, baud)
	if err != nil {
		return nil, details, err
	}
	return port, details, nil
}

// NewPortTransport wraps an open serial port. details may be nil.
func NewPortTransport(port *serial.Port, name string, details *enumerator.PortDetails) *Transport {
	t := &Transport{
		Read:     port.Read,
		Write:    port.Write,
		Close:    port.Close,
		PortName: name,
	}
	if details != nil {
		t.VendorID = details.VID
		t.ProductID = details.PID
		t.Product = details.Product
		t.SerialNumber = details.SerialNumber
	}
	return t
}

// GetTransport opens the VE.Direct USB interface as a Transport.
func GetTransport(vid, pid string, baud int) (*Transport, error) {
	port, details, err := GetUSBPort(vid, pid, baud)
	if err != nil {
		return nil, err
	}
	return NewPortTransport(port, details.Name, details), nil
}
