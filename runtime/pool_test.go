package runtime

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quill-lang/quill/vm"
)

func addProto(a, b int64) *vm.FunctionProto {
	builder := vm.NewChunkBuilder()
	builder.Constant(vm.Constant{Kind: vm.ConstInt, Int: a})
	builder.Constant(vm.Constant{Kind: vm.ConstInt, Int: b})
	builder.Emit(vm.OpAdd)
	builder.Emit(vm.OpReturn)
	return &vm.FunctionProto{Chunk: builder.Build()}
}

func TestPool_Run(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	result, err := pool.Run(context.Background(), addProto(20, 22), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Err != nil {
		t.Fatalf("program error: %v", result.Err)
	}
	if result.Value.Int != 42 {
		t.Errorf("result = %v, want 42", result.Value)
	}
	if result.ID == "" {
		t.Error("job ID is empty")
	}
}

func TestPool_RuntimeErrorPropagates(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	builder := vm.NewChunkBuilder()
	builder.Constant(vm.Constant{Kind: vm.ConstInt, Int: 1})
	builder.Constant(vm.Constant{Kind: vm.ConstInt, Int: 0})
	builder.Emit(vm.OpDivide)
	builder.Emit(vm.OpReturn)
	proto := &vm.FunctionProto{Chunk: builder.Build()}

	result, err := pool.Run(context.Background(), proto, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Err == nil || result.Err.Kind != vm.ErrDivisionByZero {
		t.Errorf("error = %v, want ErrDivisionByZero", result.Err)
	}
}

func TestPool_StdoutPerJob(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	builder := vm.NewChunkBuilder()
	builder.Constant(vm.Constant{Kind: vm.ConstString, Str: "from job"})
	builder.EmitA(vm.OpPrint, 1)
	builder.Emit(vm.OpNull)
	builder.Emit(vm.OpReturn)
	proto := &vm.FunctionProto{Chunk: builder.Build()}

	var out strings.Builder
	result, err := pool.Run(context.Background(), proto, &out)
	if err != nil || result.Err != nil {
		t.Fatalf("Run failed: %v / %v", err, result.Err)
	}
	if out.String() != "from job\n" {
		t.Errorf("output = %q, want \"from job\\n\"", out.String())
	}
}

func TestPool_ConcurrentJobs(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	const jobs = 32
	var wg sync.WaitGroup
	results := make([]int64, jobs)
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := pool.Run(context.Background(), addProto(int64(i), 1), nil)
			if err != nil || result.Err != nil {
				t.Errorf("job %d failed: %v / %v", i, err, result.Err)
				return
			}
			results[i] = result.Value.Int
		}(i)
	}
	wg.Wait()

	for i := 0; i < jobs; i++ {
		if results[i] != int64(i)+1 {
			t.Errorf("job %d = %d, want %d", i, results[i], i+1)
		}
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := NewPool(1)
	pool.Close()

	if _, err := pool.Submit(addProto(1, 1), nil); err == nil {
		t.Error("Submit after Close succeeded")
	}
}

func TestPool_SubmitCloseRace(t *testing.T) {
	// Every job Submit accepts must resolve: executed by a worker, or
	// failed with the closed-pool error once Close wins the race. No
	// accepted job may leave Wait hanging.
	for round := 0; round < 20; round++ {
		pool := NewPool(2)

		const submitters = 8
		var wg sync.WaitGroup
		for i := 0; i < submitters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				job, err := pool.Submit(addProto(1, 1), nil)
				if err != nil {
					return
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				result, err := job.Wait(ctx)
				if err != nil {
					t.Errorf("accepted job never resolved: %v", err)
					return
				}
				if result.Err == nil && result.Value.Int != 2 {
					t.Errorf("result = %v, want 2", result.Value)
				}
			}()
		}
		go pool.Close()
		wg.Wait()
		pool.Close()
	}
}
