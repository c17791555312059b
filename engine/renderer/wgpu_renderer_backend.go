package renderer

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	lru "github.com/hashicorp/golang-lru/v2"
)

// bindGroupCacheSize bounds the number of live bind groups. Each pass keeps one entry per binding
// generation, so stale entries from before a resize age out quickly.
const bindGroupCacheSize = 128

// bindGroupKey identifies a bind group by the pipeline layout it was built for, the group index
// and the provider's binding generation.
type bindGroupKey struct {
	pipelineKey string
	group       int
	provider    bind_group_provider.BindGroupProvider
	generation  uint64
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	maxDimension  int

	// layouts holds the bind group layouts created for each registered pipeline, indexed by group.
	layouts    map[string][]*wgpu.BindGroupLayout
	bindGroups *lru.Cache[bindGroupKey, *wgpu.BindGroup]

	// Frame state for the presentation render pass
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Compute frame state for batching all compute dispatches into a single GPU submission
	computeFrameEncoder *wgpu.CommandEncoder
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(win window.Window, forceFallbackAdapter bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		layouts:     make(map[string][]*wgpu.BindGroupLayout),
	}

	cache, err := lru.NewWithEvict[bindGroupKey, *wgpu.BindGroup](bindGroupCacheSize, func(_ bindGroupKey, bg *wgpu.BindGroup) {
		bg.Release()
	})
	if err != nil {
		return nil, err
	}
	w.bindGroups = cache

	if win != nil {
		w.surface = w.instance.CreateSurface(win.SurfaceDescriptor())
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.maxDimension = int(d.GetLimits().Limits.MaxTextureDimension2D)

	return w, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) MaxTextureDimension() int {
	return b.maxDimension
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.device.CreateShaderModule(computeShader.Module())
	if err != nil {
		return err
	}
	defer s.Release()

	layouts, err := b.createBindGroupLayouts(computeShader.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}

	p.SetComputePipeline(created)
	b.layouts[p.PipelineKey()] = layouts
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surfaceFormat == nil {
		return errors.New("render pipelines need a configured surface")
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return err
	}
	defer fs.Release()

	layouts, err := b.createBindGroupLayouts(mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors()))
	if err != nil {
		return err
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					WriteMask: p.WriteMask(),
					Blend:     p.BlendState(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)
	b.layouts[p.PipelineKey()] = layouts
	return nil
}

// createBindGroupLayouts creates one layout per group index from 0 to the highest declared group.
// Must be called with b.mu held.
func (b *wgpuRendererBackendImpl) createBindGroupLayouts(descriptors map[int]wgpu.BindGroupLayoutDescriptor) ([]*wgpu.BindGroupLayout, error) {
	maxGroup := -1
	for g := range descriptors {
		if g > maxGroup {
			maxGroup = g
		}
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc := descriptors[g]
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			for _, l := range layouts[:g] {
				l.Release()
			}
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = layout
	}
	return layouts, nil
}

func (b *wgpuRendererBackendImpl) ReleasePipeline(p pipeline.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := p.PipelineKey()
	for _, k := range b.bindGroups.Keys() {
		if k.pipelineKey == key {
			b.bindGroups.Remove(k)
		}
	}
	for _, l := range b.layouts[key] {
		l.Release()
	}
	delete(b.layouts, key)
}

// bindGroup returns the cached bind group for the provider's current generation, creating it
// from the pipeline's layout on a miss. Must be called with b.mu held.
func (b *wgpuRendererBackendImpl) bindGroup(p pipeline.Pipeline, group int, provider bind_group_provider.BindGroupProvider) (*wgpu.BindGroup, error) {
	key := bindGroupKey{
		pipelineKey: p.PipelineKey(),
		group:       group,
		provider:    provider,
		generation:  provider.Generation(),
	}
	if bg, ok := b.bindGroups.Get(key); ok {
		return bg, nil
	}

	layouts := b.layouts[p.PipelineKey()]
	if group >= len(layouts) {
		return nil, fmt.Errorf("pipeline %q declares no bind group %d", p.PipelineKey(), group)
	}

	bindings := make([]int, 0, len(provider.Resources()))
	for binding := range provider.Resources() {
		bindings = append(bindings, binding)
	}
	sort.Ints(bindings)

	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
	for _, binding := range bindings {
		entry := wgpu.BindGroupEntry{Binding: uint32(binding)}
		switch res := provider.Resource(binding).(type) {
		case *wgpuTexture:
			entry.TextureView = res.view
		case *wgpuSampler:
			entry.Sampler = res.sampler
		case *wgpuBuffer:
			entry.Buffer = res.buffer
			entry.Offset = 0
			entry.Size = wgpu.WholeSize
		default:
			return nil, fmt.Errorf("binding %d of %q was not created by the wgpu backend", binding, provider.Label())
		}
		entries = append(entries, entry)
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layouts[group],
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	b.bindGroups.Add(key, bg)
	return bg, nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, width, height int, usage resource.TextureUsage) (resource.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	texUsage := wgpu.TextureUsageCopyDst
	if usage.Has(resource.TextureUsageSampled) {
		texUsage |= wgpu.TextureUsageTextureBinding
	}
	if usage.Has(resource.TextureUsageStorage) {
		texUsage |= wgpu.TextureUsageStorageBinding
	}
	if usage.Has(resource.TextureUsageCopySrc) {
		texUsage |= wgpu.TextureUsageCopySrc
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     texUsage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	return &wgpuTexture{
		handle:  handle{label: label},
		texture: tex,
		view:    view,
		width:   width,
		height:  height,
		usage:   usage,
	}, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(t resource.Texture, data common.TextureStagingData) error {
	wt, ok := t.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("texture %q was not created by the wgpu backend", t.Label())
	}
	if int(data.Width) != wt.width || int(data.Height) != wt.height {
		return fmt.Errorf("texture %q is %dx%d, staged data is %dx%d", t.Label(), wt.width, wt.height, data.Width, data.Height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wt.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// ReadTexture copies the texture into a mappable buffer whose rows are padded to
// wgpu.CopyBytesPerRowAlignment, waits for the map, then strips the padding.
func (b *wgpuRendererBackendImpl) ReadTexture(t resource.Texture) (*image.RGBA, error) {
	wt, ok := t.(*wgpuTexture)
	if !ok {
		return nil, fmt.Errorf("texture %q was not created by the wgpu backend", t.Label())
	}
	if !wt.usage.Has(resource.TextureUsageCopySrc) {
		return nil, fmt.Errorf("texture %q was not created with TextureUsageCopySrc", t.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rowBytes := uint64(wt.width) * 4
	align := uint64(wgpu.CopyBytesPerRowAlignment)
	paddedRow := (rowBytes + align - 1) / align * align
	size := paddedRow * uint64(wt.height)

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: t.Label() + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer buf.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  wt.texture,
			MipLevel: 0,
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				BytesPerRow:  uint32(paddedRow),
				RowsPerImage: uint32(wt.height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(wt.width),
			Height:             uint32(wt.height),
			DepthOrArrayLayers: 1,
		},
	)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var status wgpu.BufferMapAsyncStatus
	if err := buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, err
	}
	b.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map readback buffer for %q: status %v", t.Label(), status)
	}

	mapped := buf.GetMappedRange(0, uint(size))
	img := image.NewRGBA(image.Rect(0, 0, wt.width, wt.height))
	for y := 0; y < wt.height; y++ {
		src := mapped[uint64(y)*paddedRow : uint64(y)*paddedRow+rowBytes]
		copy(img.Pix[y*img.Stride:], src)
	}
	buf.Unmap()

	return img, nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, data common.SamplerStagingData) (resource.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  data.AddressModeU,
		AddressModeV:  data.AddressModeV,
		AddressModeW:  data.AddressModeW,
		MagFilter:     data.MagFilter,
		MinFilter:     data.MinFilter,
		MipmapFilter:  data.MipmapFilter,
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   data.LodMaxClamp,
		MaxAnisotropy: data.MaxAnisotropy,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{handle: handle{label: label}, sampler: samp, staging: data}, nil
}

func (b *wgpuRendererBackendImpl) CreateUniformBuffer(label string, size uint64) (resource.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{handle: handle{label: label}, buffer: buf, size: size}, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf, ok := w.Buffer.(*wgpuBuffer)
		if !ok {
			return fmt.Errorf("buffer %q was not created by the wgpu backend", w.Buffer.Label())
		}
		b.queue.WriteBuffer(buf.buffer, w.Offset, w.Data)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return nil
	}

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	b.computeFrameEncoder.Release()
	b.computeFrameEncoder = nil
	if err != nil {
		return fmt.Errorf("finish compute frame: %w", err)
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	provider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return errors.New("DispatchCompute called outside BeginComputeFrame/EndComputeFrame")
	}

	computePipeline, ok := p.Pipeline().(*wgpu.ComputePipeline)
	if !ok || computePipeline == nil {
		return fmt.Errorf("pipeline %q has no compute pipeline", p.PipelineKey())
	}
	bindGroup, err := b.bindGroup(p, 0, provider)
	if err != nil {
		return err
	}

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || b.surfaceFormat == nil {
		return errors.New("no configured presentation surface")
	}
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	vertexCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("DrawCall called outside BeginFrame/EndFrame")
	}

	renderPipeline, ok := p.Pipeline().(*wgpu.RenderPipeline)
	if !ok || renderPipeline == nil {
		return fmt.Errorf("pipeline %q has no render pipeline", p.PipelineKey())
	}
	b.framePass.SetPipeline(renderPipeline)

	for i, provider := range bindGroups {
		bg, err := b.bindGroup(p, i, provider)
		if err != nil {
			return err
		}
		b.framePass.SetBindGroup(uint32(i), bg, nil)
	}

	b.framePass.Draw(vertexCount, 1, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no frame surface is held, nothing to present.
	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bindGroups.Purge()
	for key, layouts := range b.layouts {
		for _, l := range layouts {
			l.Release()
		}
		delete(b.layouts, key)
	}
	if b.computeFrameEncoder != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// mergeBindGroupLayouts merges vertex and fragment stage layouts into a single set of bind group
// layout descriptors. Bindings present in both stages get the union of their visibility.
//
// Parameters:
//   - vertexLayouts: the vertex shader's descriptors keyed by group index
//   - fragmentLayouts: the fragment shader's descriptors keyed by group index
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
