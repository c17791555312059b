package graph

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vidfx/engine/compute_pass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedVariantsValidate(t *testing.T) {
	for _, v := range Variants() {
		g, err := ForVariant(v)
		require.NoError(t, err)
		assert.Equal(t, v, g.Variant)
		assert.NoError(t, g.Validate(), "variant %s", v)
	}

	_, err := ForVariant("kaleidoscope")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestMontageWiring(t *testing.T) {
	g := Montage()

	var order []string
	for _, n := range g.Nodes {
		order = append(order, n.Pass)
	}
	assert.Equal(t, []string{"clear", "copy", "sobel", "blur_x", "blur_y", "subtract", "tile"}, order)
	assert.Equal(t, 5, g.TempCount())
	assert.Equal(t, 2, Blur().TempCount())

	tile, ok := g.Node("tile")
	require.True(t, ok)
	assert.Equal(t, []Binding{{"src1", "tmp1"}, {"src2", "tmp3"}, {"src3", "tmp4"}, {"src4", "tmp5"}}, tile.Reads)
	assert.Equal(t, []Binding{{"dest", Screen}}, tile.Writes)

	bx, ok := g.Node("blur_x")
	require.True(t, ok)
	assert.True(t, bx.Params)
}

func TestValidateRejectsReadBeforeWrite(t *testing.T) {
	g := Montage()
	// sobel ahead of copy
	g.Nodes[1], g.Nodes[2] = g.Nodes[2], g.Nodes[1]

	err := g.Validate()
	require.ErrorIs(t, err, ErrReadBeforeWrite)
	assert.Contains(t, err.Error(), `"sobel"`)
	assert.Contains(t, err.Error(), `"tmp1"`)
}

func TestValidateRejectsDoubleWriter(t *testing.T) {
	g := Montage()
	g.Nodes[2].Writes = []Binding{{"dest", "tmp2"}}
	g.Nodes[5].Reads = []Binding{{"src1", "tmp1"}, {"src2", "tmp2"}}

	err := g.Validate()
	require.ErrorIs(t, err, ErrDoubleWrite)
	assert.Contains(t, err.Error(), `"blur_x"`)
}

func TestValidateRejectsSelfReadWrite(t *testing.T) {
	g := Blur()
	g.Nodes[2].Writes = []Binding{{"dest", "tmp1"}}

	assert.ErrorIs(t, g.Validate(), ErrSelfReadWrite)
}

func TestValidateAllowsOnlyLeadingClear(t *testing.T) {
	g := Blur()
	g.Nodes = append(g.Nodes, Node{Pass: "clear_again", Kernel: compute_pass.ClearKernel, Writes: []Binding{{"texture", Screen}}})

	assert.ErrorIs(t, g.Validate(), ErrDoubleWrite)
}
