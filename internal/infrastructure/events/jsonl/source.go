package jsonlevents

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ark-network/noted/internal/core/domain"
	"github.com/ark-network/noted/internal/core/ports"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

const maxLineSize = 1024 * 1024

//go:embed event.schema.json
var eventSchemaJSON []byte

var eventSchema = mustLoadSchema(eventSchemaJSON)

func mustLoadSchema(buf []byte) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(buf))
	if err != nil {
		panic(fmt.Sprintf("invalid event schema: %s", err))
	}
	return schema
}

type envelope struct {
	Id      string               `json:"id"`
	Type    domain.SyncEventType `json:"type"`
	Payload json.RawMessage      `json:"payload"`
}

type source struct {
	path   string
	reader io.Reader
	closer io.Closer
}

// NewSource reads events from the file at path, one JSON object per line.
// "-" reads from stdin.
func NewSource(path string) ports.EventSource {
	return &source{path: path}
}

func NewSourceFromReader(r io.Reader) ports.EventSource {
	return &source{reader: r}
}

func (s *source) Events(ctx context.Context) (<-chan domain.SyncEvent, error) {
	reader := s.reader
	if reader == nil {
		if s.path == "-" {
			reader = os.Stdin
		} else {
			f, err := os.Open(s.path)
			if err != nil {
				return nil, fmt.Errorf("failed to open events file: %w", err)
			}
			reader = f
			s.closer = f
		}
	}

	ch := make(chan domain.SyncEvent)
	go func() {
		defer close(ch)

		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		line := 0
		for scanner.Scan() {
			line++
			buf := scanner.Bytes()
			if len(buf) <= 0 {
				continue
			}

			id, event, err := decodeEvent(buf)
			if err != nil {
				log.WithError(err).WithField("line", line).Warn("skipping malformed event")
				continue
			}
			log.WithFields(log.Fields{"id": id, "type": event.Type()}).Trace("event read")

			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.WithError(err).Warn("failed to read events")
		}
	}()

	return ch, nil
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func validateEvent(buf []byte) error {
	result, err := eventSchema.Validate(gojsonschema.NewBytesLoader(buf))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return fmt.Errorf("invalid event: %s", strings.Join(errs, ", "))
}

func decodeEvent(buf []byte) (string, domain.SyncEvent, error) {
	if err := validateEvent(buf); err != nil {
		return "", nil, err
	}

	var env envelope
	if err := json.Unmarshal(buf, &env); err != nil {
		return "", nil, err
	}
	if len(env.Id) <= 0 {
		env.Id = uuid.New().String()
	}

	var (
		event domain.SyncEvent
		err   error
	)
	switch env.Type {
	case domain.NoteCreatedType:
		var e domain.NoteCreated
		err = json.Unmarshal(env.Payload, &e)
		event = e
	case domain.NoteDestroyedType:
		var e domain.NoteDestroyed
		err = json.Unmarshal(env.Payload, &e)
		event = e
	case domain.RegistryCreatedType:
		var e domain.RegistryCreated
		err = json.Unmarshal(env.Payload, &e)
		event = e
	case domain.AccountRegisteredType:
		var e domain.AccountRegistered
		err = json.Unmarshal(env.Payload, &e)
		event = e
	default:
		return env.Id, nil, fmt.Errorf("event %s: unknown type %q", env.Id, env.Type)
	}
	if err != nil {
		return env.Id, nil, fmt.Errorf("event %s: %w", env.Id, err)
	}
	return env.Id, event, nil
}
