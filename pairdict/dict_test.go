package pairdict

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randDict(ny, nx, channels, sbin, atoms int) *Dict {
	ph, pw := (ny+2)*sbin, (nx+2)*sbin
	hog := mat.NewDense(ny*nx*channels, atoms, nil)
	gray := mat.NewDense(ph*pw, atoms, nil)
	hog.Apply(func(i, j int, v float64) float64 { return rand.NormFloat64() }, hog)
	gray.Apply(func(i, j int, v float64) float64 { return rand.Float64() }, gray)
	return &Dict{HOG: hog, Gray: gray, Ny: ny, Nx: nx, Sbin: sbin, Lambda: 0.1}
}

func TestDict_geometry(t *testing.T) {
	d := randDict(5, 4, 32, 8, 10)
	require.NoError(t, d.Validate())
	assert.Equal(t, 10, d.Atoms())
	assert.Equal(t, 32, d.Channels())
	h, w := d.PatchSize()
	assert.Equal(t, 56, h)
	assert.Equal(t, 48, w)
	assert.Equal(t, d.HOGDim()-1, d.HOGIndex(4, 3, 31))
	assert.Equal(t, h*w-1, d.PixIndex(h-1, w-1))
}

func TestDict_Validate(t *testing.T) {
	var missing *Dict
	assert.True(t, errors.Is(missing.Validate(), ErrMissing))

	d := randDict(3, 3, 4, 2, 6)
	// Patch is 10x10.
	bad := *d
	bad.Gray = mat.NewDense(100, 6, nil)
	assert.NoError(t, bad.Validate())

	bad.Gray = mat.NewDense(99, 6, nil)
	assert.Error(t, bad.Validate(), "gray dimension")

	bad = *d
	bad.Gray = mat.NewDense(100, 5, nil)
	assert.Error(t, bad.Validate(), "atom count")

	bad = *d
	bad.HOG = mat.NewDense(3*3*4+1, 6, nil)
	assert.Error(t, bad.Validate(), "hog dimension")

	bad = *d
	bad.Sbin = 0
	assert.Error(t, bad.Validate(), "geometry")
}

func TestDict_Permute(t *testing.T) {
	d := randDict(2, 2, 3, 2, 4)
	perm := []int{2, 0, 3, 1}
	p := d.Permute(perm)
	for i, j := range perm {
		assert.Equal(t, mat.Col(nil, j, d.Gray), mat.Col(nil, i, p.Gray))
	}
	assert.Same(t, d.HOG, p.HOG)
}

func TestSaveLoadExt(t *testing.T) {
	d := randDict(2, 3, 4, 2, 5)
	for _, ext := range []string{".gob", ".json", ".csv"} {
		fname := filepath.Join(t.TempDir(), "pd"+ext)
		require.NoError(t, SaveExt(fname, d), ext)
		got, err := LoadExt(fname)
		require.NoError(t, err, ext)
		assert.Equal(t, d.Ny, got.Ny, ext)
		assert.Equal(t, d.Nx, got.Nx, ext)
		assert.Equal(t, d.Sbin, got.Sbin, ext)
		assert.Equal(t, d.Lambda, got.Lambda, ext)
		assert.True(t, mat.Equal(d.HOG, got.HOG), ext)
		assert.True(t, mat.Equal(d.Gray, got.Gray), ext)
	}
}

func TestLoadExt_malformed(t *testing.T) {
	files := map[string]string{
		"empty.json":   `{"Ny":2,"Nx":2,"Sbin":2,"Atoms":1,"HOG":[],"Gray":[]}`,
		"nogray.json":  `{"Ny":1,"Nx":1,"Sbin":1,"Atoms":1,"HOG":[1,2],"Gray":[]}`,
		"noatoms.json": `{"Ny":1,"Nx":1,"Sbin":1,"Atoms":0,"HOG":[1],"Gray":[1]}`,
		"uneven.json":  `{"Ny":1,"Nx":1,"Sbin":1,"Atoms":2,"HOG":[1,2,3],"Gray":[1,2]}`,
		"nohog.csv":    "geom,1,1,1,0.1\ngray,0,0,1\n",
		"nogeom.csv":   "hog,0,0,1\ngray,0,0,1\n",
		"badindex.csv": "geom,1,1,1,0.1\nhog,-1,0,1\ngray,0,0,1\n",
	}
	dir := t.TempDir()
	for name, content := range files {
		fname := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(fname, []byte(content), 0644))
		var err error
		require.NotPanics(t, func() { _, err = LoadExt(fname) }, name)
		assert.Error(t, err, name)
	}
}

func TestLazy(t *testing.T) {
	d := randDict(2, 2, 3, 2, 4)
	calls := 0
	l := &Lazy{Load: func() (*Dict, error) {
		calls++
		return d, nil
	}}
	for i := 0; i < 3; i++ {
		got, err := l.Dict()
		require.NoError(t, err)
		assert.Same(t, d, got)
	}
	assert.Equal(t, 1, calls)

	var empty Lazy
	_, err := empty.Dict()
	assert.True(t, errors.Is(err, ErrMissing))

	_, err = File(filepath.Join(t.TempDir(), "absent.gob")).Dict()
	assert.True(t, errors.Is(err, ErrMissing))
}
