package rendercore

import (
	"fmt"

	"github.com/kestrelgfx/corerender/gapi"
	"github.com/kestrelgfx/corerender/name"
)

type dependencyEdge struct {
	consumer      name.Name
	producer      name.Name
	previousFrame bool
}

type jobFrameKey struct {
	job   name.Name
	frame uint32
}

type semKey struct {
	consumer name.Name
	producer name.Name
	frame    uint32
}

// JobGraph is the host-side directed graph of named Jobs: it owns every
// Job's BuildContext until build, walks dependency edges into a
// topological execution order, and wires a Semaphore per edge per frame so
// each Job waits on exactly the producers its declared dependencies name.
type JobGraph struct {
	device         gapi.Device
	cache          *PipelineCache
	shaders        map[name.Name]gapi.Shader
	framesInFlight uint32
	screenSize     gapi.Resolution

	contexts map[name.Name]*BuildContext
	external map[name.Name]bool
	order    []name.Name

	edges []dependencyEdge

	jobs     map[name.Name]*Job
	storages map[name.Name][]*ResourceStorage

	topoOrder []name.Name
	finalJob  name.Name

	semaphores map[semKey]gapi.Semaphore
	waitSets   map[jobFrameKey][]gapi.Semaphore
	signalSets map[jobFrameKey][]gapi.Semaphore

	externalWait   map[jobFrameKey][]gapi.Semaphore
	externalSignal map[jobFrameKey][]gapi.Semaphore

	externalTextures map[jobFrameKey][]externalTextureReg
}

type externalTextureReg struct {
	texName name.Name
	tex     gapi.Texture
}

// NewJobGraph creates an empty JobGraph. shaders supplies every compiled
// shader any job's BuildContext may reference by name.
func NewJobGraph(device gapi.Device, cache *PipelineCache, shaders map[name.Name]gapi.Shader, framesInFlight uint32, screenSize gapi.Resolution) *JobGraph {
	return &JobGraph{
		device:         device,
		cache:          cache,
		shaders:        shaders,
		framesInFlight: framesInFlight,
		screenSize:     screenSize,
		contexts:       make(map[name.Name]*BuildContext),
		external:       make(map[name.Name]bool),
		jobs:           make(map[name.Name]*Job),
		storages:       make(map[name.Name][]*ResourceStorage),
		semaphores:     make(map[semKey]gapi.Semaphore),
		waitSets:       make(map[jobFrameKey][]gapi.Semaphore),
		signalSets:     make(map[jobFrameKey][]gapi.Semaphore),
		externalWait:   make(map[jobFrameKey][]gapi.Semaphore),
		externalSignal: make(map[jobFrameKey][]gapi.Semaphore),
		externalTextures: make(map[jobFrameKey][]externalTextureReg),
	}
}

// SetExternalTexture registers tex as the backing resource for texName
// (declared via BuildContext.DeclareExternalRenderTarget) in jobName's
// frame-th ResourceStorage slot, applied just before that job is built —
// used to bind the swapchain's per-frame-slot image into the job that
// composites the frame's color output onto it.
func (g *JobGraph) SetExternalTexture(jobName, texName name.Name, frame uint32, tex gapi.Texture) {
	key := jobFrameKey{jobName, frame}
	g.externalTextures[key] = append(g.externalTextures[key], externalTextureReg{texName: texName, tex: tex})
}

// AddJob registers a new job under jobName and returns the BuildContext the
// caller records its commands into.
func (g *JobGraph) AddJob(jobName name.Name) *BuildContext {
	ctx := NewBuildContext(g.device, g.screenSize)
	g.contexts[jobName] = ctx
	g.order = append(g.order, jobName)
	return ctx
}

// AddExternalJob registers a slot whose semaphores are entirely
// host-supplied (swapchain acquire/present), participating in dependency
// edges without ever being built or executed by the graph itself.
func (g *JobGraph) AddExternalJob(jobName name.Name) {
	g.external[jobName] = true
	g.order = append(g.order, jobName)
}

// AddDependency records that consumer must wait on producer. When
// previousFrame is true, the edge crosses the frame boundary: producer's
// signal from frame N-1 becomes consumer's wait at frame N.
func (g *JobGraph) AddDependency(consumer, producer name.Name, previousFrame bool) {
	g.edges = append(g.edges, dependencyEdge{consumer: consumer, producer: producer, previousFrame: previousFrame})
}

// SetExternalWait injects a host-supplied semaphore into jobName's wait set
// at frame (e.g. the swapchain-acquire semaphore feeding the first job).
func (g *JobGraph) SetExternalWait(jobName name.Name, frame uint32, sem gapi.Semaphore) {
	key := jobFrameKey{jobName, frame}
	g.externalWait[key] = append(g.externalWait[key], sem)
}

// SetExternalSignal injects a host-supplied semaphore into jobName's
// signal set at frame (e.g. a present-wait semaphore fed by the terminal job).
func (g *JobGraph) SetExternalSignal(jobName name.Name, frame uint32, sem gapi.Semaphore) {
	key := jobFrameKey{jobName, frame}
	g.externalSignal[key] = append(g.externalSignal[key], sem)
}

// BuildJobs topologically sorts the graph (ignoring previous-frame edges,
// which are legitimately cyclic across the frame boundary), builds every
// non-external job's command lists, and wires semaphores for every edge.
func (g *JobGraph) BuildJobs(finalJobName name.Name) error {
	topo, err := g.topologicalSort()
	if err != nil {
		return err
	}
	g.topoOrder = topo
	g.finalJob = finalJobName

	for _, jobName := range topo {
		if g.external[jobName] {
			continue
		}
		ctx := g.contexts[jobName]
		storages := make([]*ResourceStorage, g.framesInFlight)
		for i := range storages {
			storages[i] = NewResourceStorage()
			for _, reg := range g.externalTextures[jobFrameKey{jobName, uint32(i)}] {
				storages[i].RegisterTexture(reg.texName, uint32(i), reg.tex)
			}
		}
		job, err := ctx.BuildJob(jobName, g.cache, g.shaders, storages)
		if err != nil {
			return fmt.Errorf("rendercore: building job %q: %w", jobName, err)
		}
		g.jobs[jobName] = job
		g.storages[jobName] = storages
	}

	return g.BuildSemaphores()
}

// RebuildJob tears down and re-records a single job in place — used when a
// resize or config change invalidates only that job's declared resources,
// without re-walking the whole graph.
func (g *JobGraph) RebuildJob(jobName name.Name, newCtx *BuildContext) error {
	if old, ok := g.jobs[jobName]; ok {
		old.Release()
	}
	g.contexts[jobName] = newCtx

	storages := make([]*ResourceStorage, g.framesInFlight)
	for i := range storages {
		storages[i] = NewResourceStorage()
		for _, reg := range g.externalTextures[jobFrameKey{jobName, uint32(i)}] {
			storages[i].RegisterTexture(reg.texName, uint32(i), reg.tex)
		}
	}
	job, err := newCtx.BuildJob(jobName, g.cache, g.shaders, storages)
	if err != nil {
		return fmt.Errorf("rendercore: rebuilding job %q: %w", jobName, err)
	}
	g.jobs[jobName] = job
	g.storages[jobName] = storages
	return nil
}

// BuildSemaphores (re-)creates one Semaphore per dependency edge per frame
// slot, releasing any it previously owned. Call again after a resize if the
// backend requires fresh semaphore objects.
func (g *JobGraph) BuildSemaphores() error {
	for _, sem := range g.semaphores {
		sem.Release()
	}
	g.semaphores = make(map[semKey]gapi.Semaphore)
	g.waitSets = make(map[jobFrameKey][]gapi.Semaphore)
	g.signalSets = make(map[jobFrameKey][]gapi.Semaphore)

	for _, edge := range g.edges {
		for frame := uint32(0); frame < g.framesInFlight; frame++ {
			producerFrame := frame
			if edge.previousFrame {
				producerFrame = (frame + g.framesInFlight - 1) % g.framesInFlight
			}

			sem, err := g.device.CreateSemaphore()
			if err != nil {
				return fmt.Errorf("rendercore: creating semaphore for %q<-%q: %w", edge.consumer, edge.producer, err)
			}
			g.semaphores[semKey{edge.consumer, edge.producer, frame}] = sem

			producerKey := jobFrameKey{edge.producer, producerFrame}
			g.signalSets[producerKey] = append(g.signalSets[producerKey], sem)

			consumerKey := jobFrameKey{edge.consumer, frame}
			g.waitSets[consumerKey] = append(g.waitSets[consumerKey], sem)
		}
	}
	return nil
}

// Execute submits every non-external job in topological order for
// frameIndex, wiring each job's computed wait/signal semaphore sets plus
// any host-injected external semaphores. fence is attached only to
// finalJobName's submission.
func (g *JobGraph) Execute(finalJobName name.Name, frameIndex uint32, fence gapi.Fence) error {
	for _, jobName := range g.topoOrder {
		if g.external[jobName] {
			continue
		}
		job := g.jobs[jobName]

		wait := append(append([]gapi.Semaphore(nil), g.waitSets[jobFrameKey{jobName, frameIndex}]...), g.externalWait[jobFrameKey{jobName, frameIndex}]...)
		signal := append(append([]gapi.Semaphore(nil), g.signalSets[jobFrameKey{jobName, frameIndex}]...), g.externalSignal[jobFrameKey{jobName, frameIndex}]...)

		var jobFence gapi.Fence
		if jobName == finalJobName {
			jobFence = fence
		}

		if err := job.Execute(frameIndex, wait, signal, jobFence); err != nil {
			return fmt.Errorf("rendercore: executing job %q: %w", jobName, err)
		}
		job.Reset()
	}
	return nil
}

// Semaphore returns the semaphore wired for the (consumer, producer) edge
// at frame, for host introspection (e.g. wiring swapchain present).
func (g *JobGraph) Semaphore(consumer, producer name.Name, frame uint32) (gapi.Semaphore, bool) {
	sem, ok := g.semaphores[semKey{consumer, producer, frame}]
	return sem, ok
}

// WaitSemaphores returns jobName's computed wait set at frame, excluding
// host-injected external semaphores.
func (g *JobGraph) WaitSemaphores(jobName name.Name, frame uint32) []gapi.Semaphore {
	return g.waitSets[jobFrameKey{jobName, frame}]
}

// SignalSemaphores returns jobName's computed signal set at frame,
// excluding host-injected external semaphores.
func (g *JobGraph) SignalSemaphores(jobName name.Name, frame uint32) []gapi.Semaphore {
	return g.signalSets[jobFrameKey{jobName, frame}]
}

// Job returns the built Job for jobName, or nil if not yet built or external.
func (g *JobGraph) Job(jobName name.Name) *Job {
	return g.jobs[jobName]
}

// topologicalSort orders g.order via Kahn's algorithm over same-frame edges
// only; previous-frame edges are intentionally excluded since they close a
// legitimate cycle across the frame boundary rather than within one frame.
func (g *JobGraph) topologicalSort() ([]name.Name, error) {
	indegree := make(map[name.Name]int, len(g.order))
	adjacency := make(map[name.Name][]name.Name, len(g.order))
	for _, n := range g.order {
		indegree[n] = 0
	}
	for _, edge := range g.edges {
		if edge.previousFrame {
			continue
		}
		adjacency[edge.producer] = append(adjacency[edge.producer], edge.consumer)
		indegree[edge.consumer]++
	}

	queue := make([]name.Name, 0, len(g.order))
	for _, n := range g.order {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	var result []name.Name
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		result = append(result, n)
		for _, next := range adjacency[n] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(result) != len(g.order) {
		return nil, fmt.Errorf("rendercore: job graph has a same-frame cycle (built %d of %d jobs)", len(result), len(g.order))
	}
	return result, nil
}

// Release tears down every built job and wired semaphore.
func (g *JobGraph) Release() {
	for _, job := range g.jobs {
		job.Release()
	}
	for _, sem := range g.semaphores {
		sem.Release()
	}
}
