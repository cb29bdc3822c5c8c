package renderer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/command_compiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/processor"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/snapshot"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	processor processor.CommandProcessor

	mode           pass.PipelineMode
	shadows        bool
	queueCapacity  int
	compileWorkers int

	frameCompiler   frame.Compiler
	passCompiler    pass.Compiler
	commandCompiler command_compiler.Compiler

	// prepMu and prepCond guard prepActive: at most one preparation is in flight.
	prepMu     *sync.Mutex
	prepCond   *sync.Cond
	prepActive bool

	queue *commandQueue

	// prepPool runs the single in-flight preparation task. compilePool runs the parallel
	// work inside it; the two are separate so a preparation task never waits on its own pool.
	prepPool    worker.DynamicWorkerPool
	compilePool worker.DynamicWorkerPool

	sequence uint64 // owned by the producer goroutine

	inSubmit  atomic.Bool
	inExecute atomic.Bool
	closed    atomic.Bool
	closeOnce *sync.Once

	submitted     atomic.Uint64
	prepared      atomic.Uint64
	processed     atomic.Uint64
	commands      atomic.Uint64
	lastPrepNanos atomic.Int64
}

// Renderer orchestrates the multi-threaded render pipeline.
//
// The producer goroutine hands snapshots to ProcessRenderSnapshot. Each snapshot is compiled
// on background workers into a frame, then render passes, then a command buffer, which is
// pushed onto a bounded FIFO. The execution goroutine pops buffers with
// ProcessRenderCommandBuffer and executes them through the CommandProcessor in submission order.
//
// Backpressure: only one snapshot is prepared at a time, and a preparation holds its slot
// until its buffer is queued. A slow execution goroutine therefore stalls the producer
// instead of growing the queue.
type Renderer interface {
	// ProcessRenderSnapshot starts preparing a snapshot and returns without waiting for it.
	// It blocks while a previous snapshot is still being prepared, including while that
	// preparation waits for room in the command buffer queue.
	//
	// Must only be called from the producer goroutine. Calling it concurrently, with a nil
	// snapshot, with a snapshot that was already submitted, or after Close panics.
	// Ownership of the snapshot passes to the renderer.
	//
	// Parameters:
	//   - snap: the snapshot to render
	ProcessRenderSnapshot(snap *snapshot.RenderSnapshot)

	// ProcessRenderCommandBuffer waits for the oldest completed command buffer and executes it
	// through the CommandProcessor. Exactly one buffer is executed per call, in submission order.
	//
	// Must only be called from the execution goroutine. Calling it concurrently panics.
	//
	// Returns:
	//   - bool: false once the renderer is closed and every queued buffer has been executed
	ProcessRenderCommandBuffer() bool

	// Mode returns the pipeline mode passes are compiled for.
	//
	// Returns:
	//   - pass.PipelineMode: the pipeline mode
	Mode() pass.PipelineMode

	// Stats returns a snapshot of the pipeline counters.
	//
	// Returns:
	//   - Stats: the current counters
	Stats() Stats

	// Close waits for the in-flight preparation to finish, releases the worker pools and
	// unblocks the execution goroutine once the queue is drained. The CommandProcessor is not
	// closed; its owner closes it on the execution goroutine.
	Close()
}

// Stats holds pipeline counters.
type Stats struct {
	SnapshotsSubmitted uint64
	BuffersPrepared    uint64
	BuffersProcessed   uint64
	CommandsProcessed  uint64
	QueueDepth         int
	QueueCapacity      int
	LastPrepDuration   time.Duration
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer that executes command buffers through the given processor.
// Defaults to forward mode without shadows, a queue capacity of 2 and NumCPU-1 compile workers.
//
// Parameters:
//   - proc: the CommandProcessor the execution goroutine executes buffers with
//   - options: variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the new renderer
func NewRenderer(proc processor.CommandProcessor, options ...RendererBuilderOption) Renderer {
	if proc == nil {
		panic("renderer: NewRenderer requires a non-nil CommandProcessor")
	}

	prepMu := &sync.Mutex{}
	r := &renderer{
		processor:      proc,
		mode:           pass.PipelineForward,
		queueCapacity:  2,
		compileWorkers: defaultCompileWorkers(),
		prepMu:         prepMu,
		prepCond:       sync.NewCond(prepMu),
		closeOnce:      &sync.Once{},
	}
	for _, opt := range options {
		opt(r)
	}
	if r.queueCapacity < 1 {
		panic("renderer: queue capacity must be at least 1")
	}

	r.queue = newCommandQueue(r.queueCapacity)
	r.prepPool = worker.NewDynamicWorkerPool(1, 1, time.Second)
	r.compilePool = worker.NewDynamicWorkerPool(r.compileWorkers, 64, time.Second)

	if r.frameCompiler == nil {
		r.frameCompiler = frame.NewCompiler(frame.WithWorkerPool(r.compilePool))
	}
	if r.passCompiler == nil {
		r.passCompiler = pass.NewCompiler(r.mode,
			pass.WithShadows(r.shadows),
			pass.WithWorkerPool(r.compilePool),
		)
	}
	if r.commandCompiler == nil {
		r.commandCompiler = command_compiler.NewCompiler(command_compiler.WithWorkerPool(r.compilePool))
	}

	common.Logger().Info("renderer created",
		"mode", r.passCompiler.Mode().String(),
		"shadows", r.shadows,
		"queue_capacity", r.queueCapacity,
		"compile_workers", r.compileWorkers,
	)
	return r
}

func (r *renderer) ProcessRenderSnapshot(snap *snapshot.RenderSnapshot) {
	if !r.inSubmit.CompareAndSwap(false, true) {
		panic("renderer: ProcessRenderSnapshot called concurrently; it must only be called from the producer goroutine")
	}
	defer r.inSubmit.Store(false)

	if snap == nil {
		panic("renderer: ProcessRenderSnapshot requires a non-nil snapshot")
	}
	if r.closed.Load() {
		panic("renderer: ProcessRenderSnapshot called after Close")
	}
	if !snap.Claim() {
		panic("renderer: snapshot was already submitted")
	}

	r.waitThenStartRenderPrep()

	r.sequence++
	seq := r.sequence
	r.submitted.Add(1)

	r.prepPool.SubmitTask(worker.Task{
		ID:      int(seq),
		Payload: seq,
		Do: func() (any, error) {
			defer r.endRenderPrep()
			buf := r.prepare(seq, snap)
			r.queue.push(buf)
			r.prepared.Add(1)
			return buf, nil
		},
	})
}

func (r *renderer) ProcessRenderCommandBuffer() bool {
	if !r.inExecute.CompareAndSwap(false, true) {
		panic("renderer: ProcessRenderCommandBuffer called concurrently; it must only be called from the execution goroutine")
	}
	defer r.inExecute.Store(false)

	buf, ok := r.queue.pop()
	if !ok {
		return false
	}
	r.processor.Process(buf)
	r.processed.Add(1)
	r.commands.Add(uint64(buf.Len()))
	return true
}

func (r *renderer) Mode() pass.PipelineMode {
	return r.passCompiler.Mode()
}

func (r *renderer) Stats() Stats {
	return Stats{
		SnapshotsSubmitted: r.submitted.Load(),
		BuffersPrepared:    r.prepared.Load(),
		BuffersProcessed:   r.processed.Load(),
		CommandsProcessed:  r.commands.Load(),
		QueueDepth:         r.queue.len(),
		QueueCapacity:      r.queueCapacity,
		LastPrepDuration:   time.Duration(r.lastPrepNanos.Load()),
	}
}

func (r *renderer) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		// Closing first lets a preparation blocked on a full queue finish.
		r.queue.close()
		r.waitRenderPrepIdle()
		r.prepPool.Stop()
		r.compilePool.Stop()
		common.Logger().Info("renderer closed", "frames", r.submitted.Load())
	})
}

// prepare runs the frame, pass and command compilers for one snapshot.
func (r *renderer) prepare(seq uint64, snap *snapshot.RenderSnapshot) *command.Buffer {
	start := time.Now()

	f := r.frameCompiler.Compile(snap)
	passes := r.passCompiler.Compile(f)
	buf := r.commandCompiler.Compile(seq, f, passes)

	r.lastPrepNanos.Store(int64(time.Since(start)))
	return buf
}

// waitThenStartRenderPrep blocks until no preparation is in flight, then claims the slot.
func (r *renderer) waitThenStartRenderPrep() {
	r.prepMu.Lock()
	defer r.prepMu.Unlock()
	for r.prepActive {
		r.prepCond.Wait()
	}
	r.prepActive = true
}

// endRenderPrep releases the preparation slot and wakes the waiting producer.
func (r *renderer) endRenderPrep() {
	r.prepMu.Lock()
	defer r.prepMu.Unlock()
	r.prepActive = false
	r.prepCond.Broadcast()
}

func (r *renderer) waitRenderPrepIdle() {
	r.prepMu.Lock()
	defer r.prepMu.Unlock()
	for r.prepActive {
		r.prepCond.Wait()
	}
}
