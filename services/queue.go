package services

import (
	"context"
	"errors"
	"log"
	"sync"
)

const (
	QUEUE_WORKER_COUNT = 4    // Количество воркеров доставки событий
	QUEUE_BUFFER_SIZE  = 1024 // Размер буфера очереди событий
)

var ErrQueueFull = errors.New("event queue is full")

// EventQueue - асинхронная очередь доставки событий поверх Publisher.
// Запрос не ждет брокер: событие кладется в буфер, воркеры отправляют его сами.
type EventQueue struct {
	target  Publisher
	tasks   chan ActivityEvent
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	workers int
}

func NewEventQueue(target Publisher, workers, size int) *EventQueue {
	if workers <= 0 {
		workers = QUEUE_WORKER_COUNT
	}
	if size <= 0 {
		size = QUEUE_BUFFER_SIZE
	}
	return &EventQueue{
		target:  target,
		tasks:   make(chan ActivityEvent, size),
		workers: workers,
	}
}

// StartWorkers запускает воркеры для обработки очереди
func (q *EventQueue) StartWorkers() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// worker отправляет события, пока очередь не закрыта и не вычерпана
func (q *EventQueue) worker(workerID int) {
	defer q.wg.Done()
	for event := range q.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := q.target.Publish(ctx, event); err != nil {
			log.Printf("ERROR: worker %d failed to publish %s event %s: %v", workerID, event.Type, event.ID, err)
		}
		cancel()
	}
}

// Publish ставит событие в очередь; при переполненном буфере событие отбрасывается
func (q *EventQueue) Publish(_ context.Context, event ActivityEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return errors.New("event queue is closed")
	}
	select {
	case q.tasks <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len - число событий, ожидающих отправки
func (q *EventQueue) Len() int {
	return len(q.tasks)
}

// Close дожидается отправки уже принятых событий и закрывает Publisher
func (q *EventQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	return q.target.Close()
}
