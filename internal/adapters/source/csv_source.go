// Package source reads the simulated sensor feed: two parallel CSV streams
// (accelerometer and GPS) replayed cyclically.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// CSVSource aggregates one accelerometer row and one GPS row per Next call,
// stamping the configured producer id and the current time. Reaching the end
// of either file restarts it from the first data row.
type CSVSource struct {
	userID int64
	accel  *csvStream
	gps    *csvStream
	now    func() time.Time
}

func NewCSVSource(userID int64, accelPath, gpsPath string) (*CSVSource, error) {
	accel, err := openStream(accelPath, []string{"x", "y", "z"})
	if err != nil {
		return nil, err
	}
	gps, err := openStream(gpsPath, []string{"latitude", "longitude"})
	if err != nil {
		accel.close()
		return nil, err
	}
	return &CSVSource{
		userID: userID,
		accel:  accel,
		gps:    gps,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *CSVSource) Next() (domain.AgentData, error) {
	accelRow, err := s.accel.next()
	if err != nil {
		return domain.AgentData{}, err
	}
	gpsRow, err := s.gps.next()
	if err != nil {
		return domain.AgentData{}, err
	}
	return domain.AgentData{
		UserID:        s.userID,
		Accelerometer: domain.Accelerometer{X: accelRow[0], Y: accelRow[1], Z: accelRow[2]},
		GPS:           domain.GPS{Latitude: gpsRow[0], Longitude: gpsRow[1]},
		Timestamp:     s.now(),
	}, nil
}

func (s *CSVSource) Close() error {
	err := s.accel.close()
	if gerr := s.gps.close(); err == nil {
		err = gerr
	}
	return err
}

// csvStream is one cyclic CSV file. The header row maps the named fields to
// column positions, so column order in the file does not matter.
type csvStream struct {
	path    string
	fields  []string
	file    *os.File
	reader  *csv.Reader
	columns []int
}

func openStream(path string, fields []string) (*csvStream, error) {
	s := &csvStream{path: path, fields: fields}
	if err := s.restart(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *csvStream) restart() error {
	if s.file != nil {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return err
		}
	} else {
		f, err := os.Open(s.path)
		if err != nil {
			return err
		}
		s.file = f
	}
	s.reader = csv.NewReader(s.file)

	header, err := s.reader.Read()
	if err != nil {
		return fmt.Errorf("%s: read header: %w", s.path, err)
	}
	s.columns = s.columns[:0]
	for _, field := range s.fields {
		idx := -1
		for i, name := range header {
			if name == field {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%s: missing column %q", s.path, field)
		}
		s.columns = append(s.columns, idx)
	}
	return nil
}

func (s *csvStream) next() ([]float64, error) {
	row, err := s.reader.Read()
	if err == io.EOF {
		// Cyclic replay: end of file starts the sequence over.
		if err := s.restart(); err != nil {
			return nil, err
		}
		row, err = s.reader.Read()
		if err != nil {
			return nil, fmt.Errorf("%s: empty feed: %w", s.path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("%s: read row: %w", s.path, err)
	}

	out := make([]float64, len(s.columns))
	for i, col := range s.columns {
		if col >= len(row) {
			return nil, fmt.Errorf("%s: short row %v", s.path, row)
		}
		v, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: column %q: %w", s.path, s.fields[i], err)
		}
		out[i] = v
	}
	return out, nil
}

func (s *csvStream) close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

var _ ports.SampleSource = (*CSVSource)(nil)
