package bind_group_provider

import "github.com/Carmen-Shannon/oxy-vidfx/engine/renderer/resource"

// BufferWrite describes a single buffer write at a byte offset.
type BufferWrite struct {
	Buffer resource.Buffer
	Offset uint64
	Data   []byte
}
