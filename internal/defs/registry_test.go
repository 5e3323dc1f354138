package defs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/parsetree"
)

func TestComponentCache(t *testing.T) {
	reg := New()

	_, ok := reg.Component("/proj/comp/Component.cdef")
	require.False(t, ok)

	comp := &model.Component{Name: "comp"}
	reg.AddComponent("/proj/comp/Component.cdef", comp)

	got, ok := reg.Component("/proj/comp/Component.cdef")
	require.True(t, ok)
	assert.Same(t, comp, got)

	// Lookups are keyed by canonical path, not the literal argument.
	got, ok = reg.Component("/proj/comp/../comp/Component.cdef")
	require.True(t, ok)
	assert.Same(t, comp, got)
}

func TestCdefFileCache(t *testing.T) {
	reg := New()
	cdef := &parsetree.CdefFile{DefFile: parsetree.DefFile{Path: "/proj/c/Component.cdef"}}
	reg.AddCdefFile(cdef)

	got, ok := reg.CdefFile("/proj/c/Component.cdef")
	require.True(t, ok)
	assert.Same(t, cdef, got)
}

func TestApiFileRegistry(t *testing.T) {
	reg := New()
	assert.Nil(t, reg.ApiFile("/proj/if/greet.api"))

	greet := &model.ApiFile{Path: "/proj/if/greet.api", Name: "greet"}
	reg.AddApiFile(greet)
	assert.Same(t, greet, reg.ApiFile("/proj/if/greet.api"))
}

func TestAllApiFiles_Sorted(t *testing.T) {
	reg := New()
	for _, p := range []string{"/z/last.api", "/a/first.api", "/m/mid.api"} {
		reg.AddApiFile(&model.ApiFile{Path: p})
	}

	all := reg.AllApiFiles()
	require.Len(t, all, 3)
	assert.Equal(t, "/a/first.api", all[0].Path)
	assert.Equal(t, "/m/mid.api", all[1].Path)
	assert.Equal(t, "/z/last.api", all[2].Path)
}
