// Package graph holds the fixed pass tables the orchestrator wires at startup and the static
// checks that keep them topologically consistent.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/compute_pass"
	"github.com/Carmen-Shannon/oxy-vidfx/engine/texture_pool"
)

// Variant names a shipped graph.
type Variant string

const (
	// VariantMontage is the 2x2 montage of copy, blur, edges and difference.
	VariantMontage Variant = "montage"

	// VariantBlur copies the frame and blurs it onto the screen.
	VariantBlur Variant = "blur"
)

// Frame is the pseudo texture name standing for the current source frame.
const Frame = "frame"

// Screen is the pool texture presented each tick.
const Screen = texture_pool.ScreenName

var (
	// ErrReadBeforeWrite is returned when a pass reads a texture no earlier pass wrote.
	ErrReadBeforeWrite = errors.New("texture read before it is written")

	// ErrDoubleWrite is returned when a texture has more than one writer besides a clear reset.
	ErrDoubleWrite = errors.New("texture written twice")

	// ErrSelfReadWrite is returned when a pass reads the texture it writes.
	ErrSelfReadWrite = errors.New("pass reads its own destination")

	// ErrUnknownVariant is returned by ForVariant for an unrecognised name.
	ErrUnknownVariant = errors.New("unknown graph variant")
)

// Binding connects a pass slot to a texture by name.
type Binding struct {
	Slot    string
	Texture string
}

// Node is one pass of the graph.
type Node struct {
	// Pass is the pass name and pipeline key.
	Pass string

	// Kernel is the kernel the pass runs.
	Kernel compute_pass.Kernel

	// Reads are the sampled texture slots.
	Reads []Binding

	// Writes are the storage texture slots.
	Writes []Binding

	// Params binds the shared blur parameter buffer to the "params" slot.
	Params bool
}

// IsReset reports whether the node only clears its destination.
func (n Node) IsReset() bool {
	return n.Kernel.Name == compute_pass.ClearKernel.Name
}

// Graph is an ordered pass table. Passes are dispatched in slice order.
type Graph struct {
	Variant Variant
	Nodes   []Node
}

// Variants returns the shipped graph variants.
//
// Returns:
//   - []Variant: the variants, default first
func Variants() []Variant {
	return []Variant{VariantMontage, VariantBlur}
}

// ForVariant returns the graph for a variant name.
//
// Parameters:
//   - v: the variant
//
// Returns:
//   - Graph: the graph
//   - error: ErrUnknownVariant for an unrecognised name
func ForVariant(v Variant) (Graph, error) {
	switch v {
	case VariantMontage, "":
		return Montage(), nil
	case VariantBlur:
		return Blur(), nil
	default:
		return Graph{}, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
}

// Montage returns the default graph: the frame, its blur, its edges and the edge/frame
// difference composited into four quadrants of the screen.
//
// Returns:
//   - Graph: the montage graph
func Montage() Graph {
	return Graph{
		Variant: VariantMontage,
		Nodes: []Node{
			{Pass: "clear", Kernel: compute_pass.ClearKernel, Writes: []Binding{{"texture", Screen}}},
			{Pass: "copy", Kernel: compute_pass.CopyKernel, Reads: []Binding{{"src", Frame}}, Writes: []Binding{{"dest", "tmp1"}}},
			{Pass: "sobel", Kernel: compute_pass.SobelKernel, Reads: []Binding{{"src", "tmp1"}}, Writes: []Binding{{"dest", "tmp4"}}},
			{Pass: "blur_x", Kernel: compute_pass.GaussianBlurXKernel, Reads: []Binding{{"src", "tmp1"}}, Writes: []Binding{{"dest", "tmp2"}}, Params: true},
			{Pass: "blur_y", Kernel: compute_pass.GaussianBlurYKernel, Reads: []Binding{{"src", "tmp2"}}, Writes: []Binding{{"dest", "tmp3"}}, Params: true},
			{Pass: "subtract", Kernel: compute_pass.SubtractKernel, Reads: []Binding{{"src1", "tmp1"}, {"src2", "tmp4"}}, Writes: []Binding{{"dest", "tmp5"}}},
			{Pass: "tile", Kernel: compute_pass.TileKernel, Reads: []Binding{{"src1", "tmp1"}, {"src2", "tmp3"}, {"src3", "tmp4"}, {"src4", "tmp5"}}, Writes: []Binding{{"dest", Screen}}},
		},
	}
}

// Blur returns the graph that blurs the frame straight onto the screen.
//
// Returns:
//   - Graph: the blur graph
func Blur() Graph {
	return Graph{
		Variant: VariantBlur,
		Nodes: []Node{
			{Pass: "clear", Kernel: compute_pass.ClearKernel, Writes: []Binding{{"texture", Screen}}},
			{Pass: "copy", Kernel: compute_pass.CopyKernel, Reads: []Binding{{"src", Frame}}, Writes: []Binding{{"dest", "tmp1"}}},
			{Pass: "blur_x", Kernel: compute_pass.GaussianBlurXKernel, Reads: []Binding{{"src", "tmp1"}}, Writes: []Binding{{"dest", "tmp2"}}, Params: true},
			{Pass: "blur_y", Kernel: compute_pass.GaussianBlurYKernel, Reads: []Binding{{"src", "tmp2"}}, Writes: []Binding{{"dest", Screen}}, Params: true},
		},
	}
}

// Validate checks the table statically:
//   - every read is the frame or a texture an earlier pass wrote;
//   - every texture has at most one writer, not counting a clear reset that precedes it;
//   - no pass reads a texture it writes.
//
// Returns:
//   - error: an error wrapping ErrReadBeforeWrite, ErrDoubleWrite or ErrSelfReadWrite naming the pass and texture
func (g Graph) Validate() error {
	written := make(map[string]bool)
	writer := make(map[string]string)

	for _, n := range g.Nodes {
		for _, r := range n.Reads {
			if r.Texture != Frame && !written[r.Texture] {
				return fmt.Errorf("pass %q: %w: %q", n.Pass, ErrReadBeforeWrite, r.Texture)
			}
			for _, w := range n.Writes {
				if w.Texture == r.Texture {
					return fmt.Errorf("pass %q: %w: %q", n.Pass, ErrSelfReadWrite, r.Texture)
				}
			}
		}

		for _, w := range n.Writes {
			if w.Texture == Frame {
				return fmt.Errorf("pass %q: %w: the frame is read-only", n.Pass, ErrDoubleWrite)
			}
			if prev, ok := writer[w.Texture]; ok {
				return fmt.Errorf("pass %q: %w: %q already written by %q", n.Pass, ErrDoubleWrite, w.Texture, prev)
			}
			if !(n.IsReset() && !written[w.Texture]) {
				writer[w.Texture] = n.Pass
			}
			written[w.Texture] = true
		}
	}
	return nil
}

// Node returns the node with the given pass name.
//
// Parameters:
//   - pass: the pass name
//
// Returns:
//   - Node: the node
//   - bool: true if found
func (g Graph) Node(pass string) (Node, bool) {
	i := slices.IndexFunc(g.Nodes, func(n Node) bool { return n.Pass == pass })
	if i < 0 {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// TempCount returns the highest tmpN index the graph uses.
//
// Returns:
//   - int: the number of scratch textures the pool must own
func (g Graph) TempCount() int {
	var n int
	for _, node := range g.Nodes {
		for _, b := range append(slices.Clone(node.Reads), node.Writes...) {
			if i, err := strconv.Atoi(strings.TrimPrefix(b.Texture, "tmp")); err == nil && strings.HasPrefix(b.Texture, "tmp") {
				n = max(n, i)
			}
		}
	}
	return n
}
