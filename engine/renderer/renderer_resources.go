package renderer

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// handle carries the bookkeeping shared by every resource implementation.
type handle struct {
	label    string
	released atomic.Bool
}

func (h *handle) Label() string {
	return h.label
}

func (h *handle) Released() bool {
	return h.released.Load()
}

// markReleased reports true exactly once, for the caller that should free the backing memory.
func (h *handle) markReleased() bool {
	return h.released.CompareAndSwap(false, true)
}

type wgpuTexture struct {
	handle
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   int
	height  int
	usage   resource.TextureUsage
}

var _ resource.Texture = &wgpuTexture{}

func (t *wgpuTexture) Kind() resource.Kind          { return resource.KindTexture }
func (t *wgpuTexture) Width() int                   { return t.width }
func (t *wgpuTexture) Height() int                  { return t.height }
func (t *wgpuTexture) Usage() resource.TextureUsage { return t.usage }

func (t *wgpuTexture) Release() {
	if !t.markReleased() {
		return
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

type wgpuSampler struct {
	handle
	sampler *wgpu.Sampler
	staging common.SamplerStagingData
}

var _ resource.Sampler = &wgpuSampler{}

func (s *wgpuSampler) Kind() resource.Kind                 { return resource.KindSampler }
func (s *wgpuSampler) Staging() common.SamplerStagingData { return s.staging }

func (s *wgpuSampler) Release() {
	if s.markReleased() && s.sampler != nil {
		s.sampler.Release()
	}
}

type wgpuBuffer struct {
	handle
	buffer *wgpu.Buffer
	size   uint64
}

var _ resource.Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Kind() resource.Kind { return resource.KindBuffer }
func (b *wgpuBuffer) Size() uint64        { return b.size }

func (b *wgpuBuffer) Release() {
	if b.markReleased() && b.buffer != nil {
		b.buffer.Release()
	}
}

type cpuTexture struct {
	handle
	image *resource.HostImage
	usage resource.TextureUsage
}

var _ resource.Texture = &cpuTexture{}

func (t *cpuTexture) Kind() resource.Kind          { return resource.KindTexture }
func (t *cpuTexture) Width() int                   { return t.image.Width() }
func (t *cpuTexture) Height() int                  { return t.image.Height() }
func (t *cpuTexture) Usage() resource.TextureUsage { return t.usage }
func (t *cpuTexture) Release()                     { t.markReleased() }

type cpuSampler struct {
	handle
	staging common.SamplerStagingData
}

var _ resource.Sampler = &cpuSampler{}

func (s *cpuSampler) Kind() resource.Kind                 { return resource.KindSampler }
func (s *cpuSampler) Staging() common.SamplerStagingData { return s.staging }
func (s *cpuSampler) Release()                            { s.markReleased() }

type cpuBuffer struct {
	handle
	data []byte
}

var _ resource.Buffer = &cpuBuffer{}

func (b *cpuBuffer) Kind() resource.Kind { return resource.KindBuffer }
func (b *cpuBuffer) Size() uint64        { return uint64(len(b.data)) }
func (b *cpuBuffer) Release()            { b.markReleased() }

// samplerDefaults fills zero fields with the renderer defaults: clamp-to-edge addressing,
// nearest filtering and a single mip level.
func samplerDefaults(s common.SamplerStagingData) common.SamplerStagingData {
	return common.SamplerStagingData{
		AddressModeU:  common.Coalesce(s.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(s.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(s.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(s.MagFilter, wgpu.FilterModeNearest),
		MinFilter:     common.Coalesce(s.MinFilter, wgpu.FilterModeNearest),
		MipmapFilter:  common.Coalesce(s.MipmapFilter, wgpu.MipmapFilterModeNearest),
		LodMinClamp:   common.Coalesce(s.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
	}
}
