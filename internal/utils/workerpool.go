// Package utils holds small pieces of infrastructure shared by the demo
// transport (internal/net) that don't belong to the
// matching core itself.
package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction is the unit of work a WorkerPool hands to a goroutine.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool runs up to n concurrent workers pulling tasks off a shared
// channel, supervised by a tomb so the whole pool shuts down together on
// the first fatal worker error or context cancellation.
type WorkerPool struct {
	n     int
	tasks chan any
}

// NewWorkerPool constructs a pool sized for n concurrent workers.
func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues a task for the next free worker to pick up.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup keeps a full complement of n workers alive against t.Dying(),
// respawning one whenever it exits without an error of its own.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < pool.n {
				t.Go(func() error {
					err := pool.worker(t, work)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (pool *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-pool.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("worker exiting on error")
			return err
		}
	}
	return nil
}
