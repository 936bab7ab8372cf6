// Package interp implements the reference language handler: a kernel
// embedding the yaegi Go interpreter.
package interp

import (
	"fmt"

	yaegi "github.com/traefik/yaegi/interp"
)

// evalRequest represents a unit of work to be executed on the interpreter
// goroutine.
type evalRequest struct {
	fn   func(*yaegi.Interpreter) (any, error)
	done chan evalResult
}

// evalResult holds the return value from an interpreter operation.
type evalResult struct {
	value any
	err   error
}

// Worker serializes all interpreter access through a single goroutine.
// The interpreter is not safe for concurrent use; every handler method
// must go through the worker to avoid data races.
type Worker struct {
	interp   *yaegi.Interpreter
	requests chan evalRequest
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(i *yaegi.Interpreter) *Worker {
	w := &Worker{
		interp:   i,
		requests: make(chan evalRequest, 16),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes interpreter requests sequentially on a dedicated
// goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the interpreter, recovering from panics.
func (w *Worker) execute(fn func(*yaegi.Interpreter) (any, error)) evalResult {
	var result evalResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value, result.err = fn(w.interp)
	}()
	return result
}

// Do submits a function for execution on the interpreter goroutine and
// blocks until it completes. Returns the result and any error (including
// panics).
func (w *Worker) Do(fn func(*yaegi.Interpreter) (any, error)) (any, error) {
	req := evalRequest{
		fn:   fn,
		done: make(chan evalResult, 1),
	}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	close(w.quit)
}
