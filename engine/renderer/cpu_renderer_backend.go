package renderer

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/shader"
)

// errNoSurface is returned by the presentation calls of the CPU backend.
var errNoSurface = errors.New("cpu backend has no presentation surface")

// cpuRendererBackendImpl runs each compute pipeline's CPU kernel on host images. Dispatches are
// recorded between BeginComputeFrame and EndComputeFrame and executed in recording order when the
// frame ends, mirroring a single queue submission.
type cpuRendererBackendImpl struct {
	mu *sync.Mutex

	maxTextureDimension int

	// pool spreads the rows of one dispatch over reusable goroutines. Dispatches themselves
	// run one after another.
	pool    worker.DynamicWorkerPool
	workers int
	taskID  int

	recording bool
	recorded  []cpuDispatch
}

type cpuDispatch struct {
	pipelineKey string
	kernel      pipeline.CPUKernel
	invocations [3]uint32
	bindings    *cpuBindings
}

// cpuBindings resolves the resources of one dispatch. Uniform bytes are copied when the frame is
// submitted, so writes made before EndComputeFrame are visible just as queued GPU writes are.
type cpuBindings struct {
	storage  map[int]*resource.HostImage
	sampled  map[int]*resource.HostImage
	samplers map[int]common.SamplerStagingData
	buffers  map[int]*cpuBuffer
	uniforms map[int][]byte
}

var _ pipeline.KernelBindings = &cpuBindings{}

func (c *cpuBindings) Storage(binding int) resource.TexelWriter {
	if img, ok := c.storage[binding]; ok {
		return img
	}
	return nil
}

func (c *cpuBindings) Sampled(binding int) resource.TexelReader {
	if img, ok := c.sampled[binding]; ok {
		return img
	}
	return nil
}

func (c *cpuBindings) Sampler(binding int) common.SamplerStagingData {
	return c.samplers[binding]
}

func (c *cpuBindings) Uniform(binding int) []byte {
	return c.uniforms[binding]
}

var _ RendererBackend = &cpuRendererBackendImpl{}

func newCPURendererBackend(maxTextureDimension, workers int) RendererBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &cpuRendererBackendImpl{
		mu:                  &sync.Mutex{},
		maxTextureDimension: common.Coalesce(maxTextureDimension, DefaultMaxTextureDimension),
		pool:                worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers:             workers,
	}
}

func (b *cpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	if p.Shader(shader.ShaderTypeCompute) == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}
	if p.CPUKernel() == nil {
		return errors.New("cpu backend requires a CPU kernel for every compute pipeline")
	}
	return nil
}

func (b *cpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	return errNoSurface
}

func (b *cpuRendererBackendImpl) ReleasePipeline(pipeline.Pipeline) {}

func (b *cpuRendererBackendImpl) CreateTexture(label string, width, height int, usage resource.TextureUsage) (resource.Texture, error) {
	return &cpuTexture{
		handle: handle{label: label},
		image:  resource.NewHostImage(width, height),
		usage:  usage,
	}, nil
}

func (b *cpuRendererBackendImpl) WriteTexture(t resource.Texture, data common.TextureStagingData) error {
	ct, ok := t.(*cpuTexture)
	if !ok {
		return fmt.Errorf("texture %q was not created by the cpu backend", t.Label())
	}
	if int(data.Width) != ct.Width() || int(data.Height) != ct.Height() {
		return fmt.Errorf("texture %q is %dx%d, staged data is %dx%d", t.Label(), ct.Width(), ct.Height(), data.Width, data.Height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ct.image.Write(data.Pixels)
	return nil
}

func (b *cpuRendererBackendImpl) ReadTexture(t resource.Texture) (*image.RGBA, error) {
	ct, ok := t.(*cpuTexture)
	if !ok {
		return nil, fmt.Errorf("texture %q was not created by the cpu backend", t.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return ct.image.Snapshot(), nil
}

func (b *cpuRendererBackendImpl) CreateSampler(label string, data common.SamplerStagingData) (resource.Sampler, error) {
	return &cpuSampler{handle: handle{label: label}, staging: data}, nil
}

func (b *cpuRendererBackendImpl) CreateUniformBuffer(label string, size uint64) (resource.Buffer, error) {
	return &cpuBuffer{handle: handle{label: label}, data: make([]byte, size)}, nil
}

func (b *cpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf, ok := w.Buffer.(*cpuBuffer)
		if !ok {
			return fmt.Errorf("buffer %q was not created by the cpu backend", w.Buffer.Label())
		}
		copy(buf.data[w.Offset:], w.Data)
	}
	return nil
}

func (b *cpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recording = true
	b.recorded = b.recorded[:0]
	return nil
}

func (b *cpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	provider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.recording {
		return errors.New("DispatchCompute called outside BeginComputeFrame/EndComputeFrame")
	}

	kernel := p.CPUKernel()
	if kernel == nil {
		return fmt.Errorf("pipeline %q has no CPU kernel", p.PipelineKey())
	}

	bindings := &cpuBindings{
		storage:  make(map[int]*resource.HostImage),
		sampled:  make(map[int]*resource.HostImage),
		samplers: make(map[int]common.SamplerStagingData),
		buffers:  make(map[int]*cpuBuffer),
	}

	slots := p.Shader(shader.ShaderTypeCompute).Slots()
	for _, slot := range slots {
		res := provider.Resource(slot.Binding)
		if res == nil {
			return fmt.Errorf("pipeline %q: binding %d (%s) is empty", p.PipelineKey(), slot.Binding, slot.Name)
		}
		switch slot.Kind {
		case shader.SlotKindStorageTexture, shader.SlotKindSampledTexture:
			t, ok := res.(*cpuTexture)
			if !ok {
				return fmt.Errorf("pipeline %q: binding %d (%s) needs a cpu texture", p.PipelineKey(), slot.Binding, slot.Name)
			}
			if slot.Kind == shader.SlotKindStorageTexture {
				bindings.storage[slot.Binding] = t.image
			} else {
				bindings.sampled[slot.Binding] = t.image
			}
		case shader.SlotKindSampler:
			s, ok := res.(*cpuSampler)
			if !ok {
				return fmt.Errorf("pipeline %q: binding %d (%s) needs a cpu sampler", p.PipelineKey(), slot.Binding, slot.Name)
			}
			bindings.samplers[slot.Binding] = s.staging
		case shader.SlotKindUniform:
			u, ok := res.(*cpuBuffer)
			if !ok {
				return fmt.Errorf("pipeline %q: binding %d (%s) needs a cpu buffer", p.PipelineKey(), slot.Binding, slot.Name)
			}
			bindings.buffers[slot.Binding] = u
		}
	}

	size := p.Shader(shader.ShaderTypeCompute).WorkgroupSize()
	b.recorded = append(b.recorded, cpuDispatch{
		pipelineKey: p.PipelineKey(),
		kernel:      kernel,
		invocations: [3]uint32{
			workGroupCount[0] * size[0],
			workGroupCount[1] * size[1],
			workGroupCount[2] * size[2],
		},
		bindings: bindings,
	})
	return nil
}

func (b *cpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.recording {
		return nil
	}
	b.recording = false

	for _, d := range b.recorded {
		d.bindings.uniforms = make(map[int][]byte, len(d.bindings.buffers))
		for binding, buf := range d.bindings.buffers {
			d.bindings.uniforms[binding] = append([]byte(nil), buf.data...)
		}
	}

	for _, d := range b.recorded {
		b.execute(d)
	}
	common.Logger().Debug("cpu compute frame submitted", "dispatches", len(b.recorded))
	b.recorded = b.recorded[:0]
	return nil
}

// execute runs every invocation of one dispatch. Rows are split into at most b.workers bands
// which run on the worker pool; the call returns once every band has finished.
func (b *cpuRendererBackendImpl) execute(d cpuDispatch) {
	nx, ny, nz := d.invocations[0], d.invocations[1], d.invocations[2]
	if nx == 0 || ny == 0 || nz == 0 {
		return
	}

	band := func(y0, y1 uint32) {
		for z := uint32(0); z < nz; z++ {
			for y := y0; y < y1; y++ {
				for x := uint32(0); x < nx; x++ {
					d.kernel([3]uint32{x, y, z}, d.bindings)
				}
			}
		}
	}

	bands := uint32(b.workers)
	if bands > ny {
		bands = ny
	}
	if bands <= 1 {
		band(0, ny)
		return
	}

	rows := (ny + bands - 1) / bands
	var wg sync.WaitGroup
	for y0 := uint32(0); y0 < ny; y0 += rows {
		y1 := min(y0+rows, ny)
		wg.Add(1)
		id := b.taskID
		b.taskID++
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				band(y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (b *cpuRendererBackendImpl) ConfigureSurface(width, height int) {}

func (b *cpuRendererBackendImpl) SetPresentMode(mode PresentMode) {}

func (b *cpuRendererBackendImpl) BeginFrame() error {
	return errNoSurface
}

func (b *cpuRendererBackendImpl) DrawCall(pipeline.Pipeline, uint32, []bind_group_provider.BindGroupProvider) error {
	return errNoSurface
}

func (b *cpuRendererBackendImpl) EndFrame() {}

func (b *cpuRendererBackendImpl) Present() {}

func (b *cpuRendererBackendImpl) MaxTextureDimension() int {
	return b.maxTextureDimension
}

func (b *cpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recording = false
	b.recorded = nil
}
