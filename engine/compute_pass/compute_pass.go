// Package compute_pass wraps one compute kernel and the explicit slot table it is dispatched with.
// Slots are read from the kernel's group 0 declarations; every slot must be bound before the
// first dispatch and Finalize checks that in one step.
package compute_pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/parameter_store"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/shader"
)

type computePass struct {
	name     string
	kernel   Kernel
	r        renderer.Renderer
	shader   shader.Shader
	provider bind_group_provider.BindGroupProvider

	validate bool
	released bool
}

// ComputePass is a named kernel instance together with the resources bound to its slots.
// A pass is driven from a single goroutine.
type ComputePass interface {
	// Name returns the pass name. It is also the pipeline key the kernel is registered under.
	//
	// Returns:
	//   - string: the pass name
	Name() string

	// Kernel returns the kernel the pass was built from.
	//
	// Returns:
	//   - Kernel: the kernel
	Kernel() Kernel

	// Slots returns the declared slots sorted by binding.
	//
	// Returns:
	//   - []shader.Slot: the slots
	Slots() []shader.Slot

	// Bind binds a resource to a named slot. Rebinding replaces the previous resource from the
	// next dispatch on.
	//
	// Parameters:
	//   - slot: the WGSL variable name of the slot
	//   - res: a resource.Texture, resource.Sampler or resource.Buffer matching the slot kind
	//
	// Returns:
	//   - error: an error if the slot is unknown, the kind or usage does not match, or the resource is released
	Bind(slot string, res resource.Resource) error

	// BindSamplers binds s to every sampler slot.
	//
	// Parameters:
	//   - s: the sampler
	//
	// Returns:
	//   - error: an error if s is nil or released
	BindSamplers(s resource.Sampler) error

	// Bound returns the resource bound to a slot, or nil.
	//
	// Parameters:
	//   - slot: the slot name
	//
	// Returns:
	//   - resource.Resource: the bound resource or nil
	Bound(slot string) resource.Resource

	// Finalize checks that every slot is bound.
	//
	// Returns:
	//   - error: a *common.UnboundSlotError naming the first unbound slot
	Finalize() error

	// Dest returns the texture bound to the storage slot, or nil.
	//
	// Returns:
	//   - resource.Texture: the destination texture
	Dest() resource.Texture

	// Groups returns the dispatch group counts covering Dest.
	//
	// Returns:
	//   - [3]uint32: ceil(w/16), ceil(h/16), 1, or zeros if no destination is bound
	Groups() [3]uint32

	// Reads returns the sampled textures currently bound, in binding order.
	//
	// Returns:
	//   - []resource.Texture: the source textures
	Reads() []resource.Texture

	// Writes returns the storage textures currently bound, in binding order.
	//
	// Returns:
	//   - []resource.Texture: the destination textures
	Writes() []resource.Texture

	// Dispatch records the kernel into the renderer's open compute frame. It never blocks.
	//
	// Parameters:
	//   - gx: workgroups along x
	//   - gy: workgroups along y
	//   - gz: workgroups along z
	//
	// Returns:
	//   - error: a *common.UnboundSlotError, an error wrapping common.ErrReleased, or a renderer error
	Dispatch(gx, gy, gz uint32) error

	// Release unregisters the pipeline and drops every binding. Bound resources are not released.
	// Calling it again is a no-op.
	Release()
}

var _ ComputePass = &computePass{}

// NewComputePass parses and validates the kernel and registers its pipeline under name.
//
// Parameters:
//   - name: the pass name, unique per renderer
//   - kernel: the kernel to run
//   - r: the renderer the pipeline is registered with
//   - opts: builder options such as WithKernelValidation
//
// Returns:
//   - ComputePass: the pass, with no slots bound
//   - error: a *common.KernelCompileError if the kernel cannot be built
func NewComputePass(name string, kernel Kernel, r renderer.Renderer, opts ...ComputePassBuilderOption) (ComputePass, error) {
	p := &computePass{
		name:     name,
		kernel:   kernel,
		r:        r,
		validate: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	s, err := CompileKernel(name, kernel, p.validate)
	if err != nil {
		return nil, err
	}
	p.shader = s

	pl := pipeline.NewPipeline(name, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(s),
		pipeline.WithCPUKernel(kernel.CPU),
	)
	if err := r.RegisterPipelines(pl); err != nil {
		return nil, &common.KernelCompileError{Pass: name, Err: err}
	}

	p.provider = bind_group_provider.NewBindGroupProvider(name)
	return p, nil
}

// CompileKernel preprocesses, parses and optionally validates a kernel without touching a device.
//
// Parameters:
//   - name: the pass name used in errors
//   - kernel: the kernel to compile
//   - validate: false to skip naga validation
//
// Returns:
//   - shader.Shader: the parsed shader
//   - error: a *common.KernelCompileError
func CompileKernel(name string, kernel Kernel, validate bool) (shader.Shader, error) {
	s, err := shader.NewShader(name, shader.ShaderTypeCompute, kernel.Source,
		shader.WithStruct(parameter_store.StructArg, parameter_store.GPUBlurParamsSource, parameter_store.GPUBlurParamsTypeName),
		shader.WithValidation(validate),
	)
	if err != nil {
		return nil, &common.KernelCompileError{Pass: name, Err: err}
	}
	if ws := s.WorkgroupSize(); ws != [3]uint32{common.WorkGroupSize, common.WorkGroupSize, 1} {
		return nil, &common.KernelCompileError{Pass: name, Err: fmt.Errorf("workgroup size %v, want [16 16 1]", ws)}
	}
	return s, nil
}

func (p *computePass) Name() string {
	return p.name
}

func (p *computePass) Kernel() Kernel {
	return p.kernel
}

func (p *computePass) Slots() []shader.Slot {
	return p.shader.Slots()
}

func (p *computePass) Bind(name string, res resource.Resource) error {
	if p.released {
		return fmt.Errorf("pass %q: %w", p.name, common.ErrReleased)
	}
	slot, ok := p.shader.Slot(name)
	if !ok {
		return fmt.Errorf("pass %q: unknown slot %q", p.name, name)
	}
	if res == nil {
		return fmt.Errorf("pass %q: nil resource for slot %q", p.name, name)
	}
	if res.Released() {
		return fmt.Errorf("pass %q slot %q: %s %q: %w", p.name, name, res.Kind(), res.Label(), common.ErrReleased)
	}
	if err := checkKind(slot, res); err != nil {
		return fmt.Errorf("pass %q slot %q: %w", p.name, name, err)
	}

	p.provider.SetResource(slot.Binding, res)
	return nil
}

func (p *computePass) BindSamplers(s resource.Sampler) error {
	for _, slot := range p.shader.Slots() {
		if slot.Kind != shader.SlotKindSampler {
			continue
		}
		if err := p.Bind(slot.Name, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *computePass) Bound(name string) resource.Resource {
	slot, ok := p.shader.Slot(name)
	if !ok {
		return nil
	}
	return p.provider.Resource(slot.Binding)
}

func (p *computePass) Finalize() error {
	return p.checkComplete()
}

func (p *computePass) Dest() resource.Texture {
	if w := p.Writes(); len(w) > 0 {
		return w[0]
	}
	return nil
}

func (p *computePass) Groups() [3]uint32 {
	dest := p.Dest()
	if dest == nil {
		return [3]uint32{}
	}
	return common.WorkGroupCount(dest.Width(), dest.Height())
}

func (p *computePass) Reads() []resource.Texture {
	return p.textures(shader.SlotKindSampledTexture)
}

func (p *computePass) Writes() []resource.Texture {
	return p.textures(shader.SlotKindStorageTexture)
}

func (p *computePass) Dispatch(gx, gy, gz uint32) error {
	if p.released {
		return fmt.Errorf("pass %q: %w", p.name, common.ErrReleased)
	}
	if err := p.checkComplete(); err != nil {
		return err
	}
	for _, slot := range p.shader.Slots() {
		res := p.provider.Resource(slot.Binding)
		if res.Released() {
			return fmt.Errorf("pass %q slot %q: %s %q: %w", p.name, slot.Name, res.Kind(), res.Label(), common.ErrReleased)
		}
	}

	if err := p.r.DispatchCompute(p.name, p.provider, [3]uint32{gx, gy, gz}); err != nil {
		return fmt.Errorf("pass %q: %w", p.name, err)
	}
	return nil
}

func (p *computePass) Release() {
	if p.released {
		return
	}
	p.released = true
	p.provider.Release()
	p.r.ReleasePipeline(p.name)
}

func (p *computePass) checkComplete() error {
	for _, slot := range p.shader.Slots() {
		if p.provider.Resource(slot.Binding) == nil {
			return &common.UnboundSlotError{Pass: p.name, Slot: slot.Name}
		}
	}
	return nil
}

func (p *computePass) textures(kind shader.SlotKind) []resource.Texture {
	var out []resource.Texture
	for _, slot := range p.shader.Slots() {
		if slot.Kind != kind {
			continue
		}
		if t, ok := p.provider.Resource(slot.Binding).(resource.Texture); ok {
			out = append(out, t)
		}
	}
	return out
}

// checkKind reports whether res can be bound to slot.
func checkKind(slot shader.Slot, res resource.Resource) error {
	switch slot.Kind {
	case shader.SlotKindStorageTexture, shader.SlotKindSampledTexture:
		t, ok := res.(resource.Texture)
		if !ok {
			return fmt.Errorf("want a texture, got %s %q", res.Kind(), res.Label())
		}
		want := resource.TextureUsageSampled
		if slot.Kind == shader.SlotKindStorageTexture {
			want = resource.TextureUsageStorage
		}
		if !t.Usage().Has(want) {
			return fmt.Errorf("texture %q lacks the usage for a %s slot", t.Label(), slot.Kind)
		}
	case shader.SlotKindSampler:
		if _, ok := res.(resource.Sampler); !ok {
			return fmt.Errorf("want a sampler, got %s %q", res.Kind(), res.Label())
		}
	case shader.SlotKindUniform:
		b, ok := res.(resource.Buffer)
		if !ok {
			return fmt.Errorf("want a buffer, got %s %q", res.Kind(), res.Label())
		}
		if b.Size() < slot.MinSize {
			return fmt.Errorf("buffer %q is %d bytes, slot needs %d", b.Label(), b.Size(), slot.MinSize)
		}
	}
	return nil
}
