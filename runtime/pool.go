// Package runtime runs compiled programs on a pool of interpreter workers.
package runtime

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/quill-lang/quill/vm"
)

var log = commonlog.GetLogger("quill.runtime")

// Job is a unit of work: one compiled program to execute on a worker's VM.
type Job struct {
	ID     string
	Proto  *vm.FunctionProto
	Stdout io.Writer

	done chan Result
}

// Result holds the outcome of one job.
type Result struct {
	ID    string
	Value vm.Value
	Err   *vm.RuntimeError
}

// Pool executes programs on a fixed set of workers. Each worker owns its
// VM exclusively; interpreter state is never shared between goroutines.
// Workers still share the process-wide symbol, shape and cache registries,
// which handle their own locking.
type Pool struct {
	jobs chan *Job
	quit chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts n workers, each with its own VM.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		jobs: make(chan *Job, 64),
		quit: make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Infof("started %d workers", n)
	return p
}

// worker processes jobs sequentially on a dedicated goroutine and VM.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	machine := vm.NewVM()
	for {
		select {
		case job := <-p.jobs:
			job.done <- p.execute(machine, job)
		case <-p.quit:
			return
		}
	}
}

// execute runs one job, recovering from interpreter panics so a bad
// program cannot take down the pool.
func (p *Pool) execute(machine *vm.VM, job *Job) (result Result) {
	result.ID = job.ID
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("job %s panicked: %v", job.ID, r)
			result.Err = &vm.RuntimeError{Kind: vm.ErrGeneral, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if job.Stdout != nil {
		machine.SetStdout(job.Stdout)
	}
	log.Debugf("job %s: executing %q", job.ID, job.Proto.Name)
	result.Value, result.Err = machine.Execute(job.Proto)
	return result
}

// Submit queues a program for execution and returns the job handle. The
// job ID is assigned here.
func (p *Pool) Submit(proto *vm.FunctionProto, stdout io.Writer) (*Job, error) {
	job := &Job{
		ID:     uuid.New().String(),
		Proto:  proto,
		Stdout: stdout,
		done:   make(chan Result, 1),
	}

	// The closed check and the send stay under one lock so Close cannot
	// slip between them and leave a job no worker will ever pick up.
	// Close only stops the workers after taking this lock, so the send
	// always has live consumers.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("pool is closed")
	}
	p.jobs <- job
	return job, nil
}

// Wait blocks until the job completes or the context is cancelled.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case result := <-j.done:
		return result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Run submits a program and waits for its result.
func (p *Pool) Run(ctx context.Context, proto *vm.FunctionProto, stdout io.Writer) (Result, error) {
	job, err := p.Submit(proto, stdout)
	if err != nil {
		return Result{}, err
	}
	return job.Wait(ctx)
}

// Close stops the workers. Queued jobs that have not started complete
// with a General error instead of executing, so their Wait never hangs.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()

	for {
		select {
		case job := <-p.jobs:
			job.done <- Result{
				ID:  job.ID,
				Err: &vm.RuntimeError{Kind: vm.ErrGeneral, Message: "pool closed before execution"},
			}
		default:
			log.Info("workers stopped")
			return
		}
	}
}
