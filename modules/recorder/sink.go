package recorder

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/GoCodeAlone/simhost"
)

// Sink kinds accepted by the "sink" parameter.
const (
	SinkCSV         = "csv"
	SinkMemory      = "memory"
	SinkCloudEvents = "cloudevents"
)

// ErrUnknownSink is returned for an unsupported sink kind.
var ErrUnknownSink = errors.New("unknown recorder sink")

// Sink writes recorded events somewhere.
type Sink interface {
	// Open prepares the sink. It is called once when the recorder starts.
	Open() error
	// Write records one event.
	Write(event simhost.Event) error
	// Close flushes and releases the sink.
	Close() error
}

// NewSink creates a sink of the given kind writing to path.
func NewSink(kind, path string) (Sink, error) {
	switch kind {
	case SinkMemory:
		return memorySink{}, nil
	case SinkCSV:
		return &csvSink{path: path}, nil
	case SinkCloudEvents:
		return &cloudEventsSink{path: path, source: eventSource}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, kind)
	}
}

// memorySink keeps nothing beyond the recorder's own event list.
type memorySink struct{}

func (memorySink) Open() error               { return nil }
func (memorySink) Write(simhost.Event) error { return nil }
func (memorySink) Close() error              { return nil }

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

// csvSink writes one "tick,seed,energy_total" row per event.
type csvSink struct {
	path string
	file *os.File
	w    *csv.Writer
}

func (s *csvSink) Open() error {
	f, err := createFile(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.w = csv.NewWriter(f)
	return s.w.Write([]string{"tick", "seed", "energy_total"})
}

func (s *csvSink) Write(event simhost.Event) error {
	if s.w == nil {
		return nil
	}
	return s.w.Write([]string{strconv.Itoa(event.Tick), event.Payload["seed"], event.Payload["energy_total"]})
}

func (s *csvSink) Close() error {
	if s.file == nil {
		return nil
	}
	s.w.Flush()
	err := errors.Join(s.w.Error(), s.file.Close())
	s.file, s.w = nil, nil
	return err
}

// cloudEventsSink writes one structured CloudEvent per line.
type cloudEventsSink struct {
	path   string
	source string
	file   *os.File
	w      *bufio.Writer
}

func (s *cloudEventsSink) Open() error {
	f, err := createFile(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.w = bufio.NewWriter(f)
	return nil
}

func (s *cloudEventsSink) Write(event simhost.Event) error {
	if s.w == nil {
		return nil
	}
	ce, err := event.CloudEvent(s.source)
	if err != nil {
		return err
	}
	line, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (s *cloudEventsSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := errors.Join(s.w.Flush(), s.file.Close())
	s.file, s.w = nil, nil
	return err
}
