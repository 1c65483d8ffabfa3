package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoStableSwap/riskgate/internal/model"
	"github.com/GoStableSwap/riskgate/internal/pkg/logger"
	"github.com/google/uuid"
)

// EventRepo is a durable sink for emitted records (Postgres, Redis).
type EventRepo interface {
	Insert(ctx context.Context, event *model.Event) error
	List(ctx context.Context, eventType string, limit int) ([]*model.Event, error)
}

// Broadcaster pushes records to live subscribers (the websocket hub).
type Broadcaster interface {
	Broadcast(event *model.Event)
}

// EventService is the single EventSink implementation: a buffered channel
// consumer fanning each record out to a JSONL file, an in-memory ring buffer,
// live subscribers, and any configured durable repos. Emission never blocks
// the hot path; when the buffer is full the record is dropped with a warning.
type EventService struct {
	eventChan   chan *model.Event
	logFile     *os.File
	buffer      *eventBuffer
	repos       []EventRepo
	broadcaster Broadcaster
}

func NewEventService(logDir string, bufferSize int, broadcaster Broadcaster, repos ...EventRepo) (*EventService, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	// Day-stamped JSONL file, same shape the analytics collaborator indexes.
	filename := filepath.Join(logDir, "events-"+time.Now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	if bufferSize <= 0 {
		bufferSize = 1000
	}
	svc := &EventService{
		eventChan:   make(chan *model.Event, bufferSize),
		logFile:     f,
		buffer:      newEventBuffer(bufferSize),
		repos:       repos,
		broadcaster: broadcaster,
	}

	go svc.processEvents()

	return svc, nil
}

// Emit implements EventSink.
func (s *EventService) Emit(eventType model.EventType, data any) {
	event := &model.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	s.buffer.Add(event)
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(event)
	}

	select {
	case s.eventChan <- event:
	default:
		logger.Warn("event buffer full, dropping record", "type", eventType)
	}
}

// List returns recent records, newest first, optionally filtered by type.
// Durable repos are preferred; the ring buffer serves when none is configured
// or the repo read fails.
func (s *EventService) List(ctx context.Context, eventType string, limit int) ([]*model.Event, error) {
	for _, repo := range s.repos {
		events, err := repo.List(ctx, eventType, limit)
		if err == nil {
			return events, nil
		}
		logger.Warn("event repo list failed, trying next sink", "error", err.Error())
	}
	return s.buffer.List(eventType, limit), nil
}

func (s *EventService) processEvents() {
	encoder := json.NewEncoder(s.logFile)
	for event := range s.eventChan {
		if err := encoder.Encode(event); err != nil {
			logger.Error("failed to write event record", "error", err.Error())
		}
		for _, repo := range s.repos {
			if err := repo.Insert(context.Background(), event); err != nil {
				logger.Error("failed to persist event record", "error", err.Error())
			}
		}
	}
}

func (s *EventService) Close() {
	close(s.eventChan)
	s.logFile.Close()
}

// eventBuffer is a fixed-size ring of recent records for the list endpoint.
type eventBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.Event
	nextIndex int
}

func newEventBuffer(maxSize int) *eventBuffer {
	return &eventBuffer{
		maxSize: maxSize,
		records: make([]*model.Event, 0, maxSize),
	}
}

func (b *eventBuffer) Add(event *model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, event)
		return
	}
	b.records[b.nextIndex] = event
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

func (b *eventBuffer) List(eventType string, limit int) []*model.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > len(b.records) {
		limit = len(b.records)
	}

	// Walk backwards from the most recent insert.
	out := make([]*model.Event, 0, limit)
	for i := 0; i < len(b.records) && len(out) < limit; i++ {
		idx := (b.nextIndex - 1 - i + len(b.records)*2) % len(b.records)
		ev := b.records[idx]
		if ev == nil {
			continue
		}
		if eventType != "" && string(ev.Type) != eventType {
			continue
		}
		out = append(out, ev)
	}
	return out
}
