package gps

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"fieldnav/pkg/model"
)

const knotsToMS = 0.514444

// nominalUERE scales HDOP into a rough horizontal accuracy in meters
// when the receiver does not emit GST error estimates.
const nominalUERE = 5.0

// decoder folds a stream of NMEA sentences into position fixes.
// RMC drives emission; GGA contributes altitude and accuracy.
type decoder struct {
	altitude *float64
	accuracy *float64
}

// feed parses one line and returns a fix when the line completes one.
func (d *decoder) feed(line string) (model.GeoFix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return model.GeoFix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// Noisy receivers emit partial sentences; skip them.
		return model.GeoFix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		alt := m.Altitude
		d.altitude = &alt
		if m.HDOP > 0 {
			acc := m.HDOP * nominalUERE
			d.accuracy = &acc
		}
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != "A" {
			return model.GeoFix{}, false
		}

		fix := model.GeoFix{
			Lat:       m.Latitude,
			Lon:       m.Longitude,
			Altitude:  d.altitude,
			Accuracy:  d.accuracy,
			Timestamp: time.Now(),
		}
		speed := m.Speed * knotsToMS
		fix.Speed = &speed
		if m.Speed > 0.5 {
			// Course over ground is meaningless while stationary.
			course := m.Course
			fix.Heading = &course
		}

		d.accuracy = nil // GGA accuracy applies to the current epoch only
		return fix, true
	}
	return model.GeoFix{}, false
}

// runReader pumps lines from r through the decoder until ctx is done
// or the stream ends.
func runReader(ctx context.Context, r io.Reader, emit FixHandler) error {
	dec := &decoder{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fix, ok := dec.feed(scanner.Text()); ok {
			emit(fix)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// SerialSource reads NMEA sentences from a serial GPS receiver.
type SerialSource struct {
	Port string
	Baud uint
}

// Run opens the port and pumps fixes until ctx is cancelled.
func (s *SerialSource) Run(ctx context.Context, emit FixHandler) error {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        s.Port,
		BaudRate:        s.Baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return err
	}
	defer port.Close()

	// Close the port when the context ends to unblock the reader.
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	slog.Info("GPS serial port opened", "port", s.Port, "baud", s.Baud)
	return runReader(ctx, port, emit)
}

// TCPSource reads NMEA sentences from a TCP line feed and reconnects
// with a fixed backoff when the feed drops.
type TCPSource struct {
	Address string
}

// Run keeps the feed alive until ctx is cancelled.
func (s *TCPSource) Run(ctx context.Context, emit FixHandler) error {
	for {
		if err := s.runOnce(ctx, emit); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("GPS feed dropped, reconnecting", "address", s.Address, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}

func (s *TCPSource) runOnce(ctx context.Context, emit FixHandler) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.Address)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	slog.Info("GPS feed connected", "address", s.Address)
	return runReader(ctx, conn, emit)
}
