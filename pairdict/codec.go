package pairdict

import (
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// file is the on-disk form of a dictionary for gob and JSON.
// Matrices are stored row-major.
type file struct {
	Ny, Nx int
	Sbin   int
	Lambda float64
	Atoms  int
	HOG    []float64
	Gray   []float64
}

func toFile(d *Dict) *file {
	return &file{
		Ny:     d.Ny,
		Nx:     d.Nx,
		Sbin:   d.Sbin,
		Lambda: d.Lambda,
		Atoms:  d.Atoms(),
		HOG:    rawRowMajor(d.HOG),
		Gray:   rawRowMajor(d.Gray),
	}
}

func fromFile(f *file) (*Dict, error) {
	if f.Atoms <= 0 {
		return nil, errors.Errorf("dictionary file: invalid number of atoms: %d", f.Atoms)
	}
	if len(f.HOG) == 0 || len(f.Gray) == 0 {
		return nil, errors.Errorf("dictionary file: empty atoms: %d hog and %d gray elements", len(f.HOG), len(f.Gray))
	}
	if len(f.HOG)%f.Atoms != 0 || len(f.Gray)%f.Atoms != 0 {
		return nil, errors.Errorf("dictionary file: %d and %d elements for %d atoms", len(f.HOG), len(f.Gray), f.Atoms)
	}
	d := &Dict{
		HOG:    mat.NewDense(len(f.HOG)/f.Atoms, f.Atoms, f.HOG),
		Gray:   mat.NewDense(len(f.Gray)/f.Atoms, f.Atoms, f.Gray),
		Ny:     f.Ny,
		Nx:     f.Nx,
		Sbin:   f.Sbin,
		Lambda: f.Lambda,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func rawRowMajor(a *mat.Dense) []float64 {
	m, n := a.Dims()
	x := make([]float64, 0, m*n)
	for i := 0; i < m; i++ {
		x = append(x, a.RawRowView(i)...)
	}
	return x
}

// SaveExt saves a dictionary in a format chosen by the file extension:
// ".json", ".csv" or gob otherwise.
func SaveExt(fname string, d *Dict) error {
	if err := d.Validate(); err != nil {
		return err
	}
	out, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer out.Close()
	switch path.Ext(fname) {
	case ".json":
		err = json.NewEncoder(out).Encode(toFile(d))
	case ".csv":
		err = EncodeCSV(out, d)
	default:
		err = gob.NewEncoder(out).Encode(toFile(d))
	}
	if err != nil {
		return errors.Wrapf(err, "save dictionary %s", fname)
	}
	return nil
}

// LoadExt loads a dictionary saved by SaveExt.
func LoadExt(fname string) (*Dict, error) {
	in, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	if path.Ext(fname) == ".csv" {
		d, err := DecodeCSV(in)
		if err != nil {
			return nil, errors.Wrapf(err, "load dictionary %s", fname)
		}
		return d, nil
	}
	f := new(file)
	switch path.Ext(fname) {
	case ".json":
		err = json.NewDecoder(in).Decode(f)
	default:
		err = gob.NewDecoder(in).Decode(f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load dictionary %s", fname)
	}
	return fromFile(f)
}

// EncodeCSV writes one record per element:
//	geom,ny,nx,sbin,lambda
//	hog,i,j,x
//	gray,i,j,x
func EncodeCSV(w io.Writer, d *Dict) error {
	ww := csv.NewWriter(w)
	rec := []string{
		"geom",
		strconv.Itoa(d.Ny),
		strconv.Itoa(d.Nx),
		strconv.Itoa(d.Sbin),
		strconv.FormatFloat(d.Lambda, 'g', -1, 64),
	}
	if err := ww.Write(rec); err != nil {
		return err
	}
	for _, half := range []struct {
		Name string
		Mat  *mat.Dense
	}{{"hog", d.HOG}, {"gray", d.Gray}} {
		m, n := half.Mat.Dims()
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				if err := ww.Write(formatElem(half.Name, i, j, half.Mat.At(i, j))); err != nil {
					return err
				}
			}
		}
	}
	ww.Flush()
	return ww.Error()
}

func formatElem(name string, i, j int, x float64) []string {
	return []string{
		name,
		strconv.FormatInt(int64(i), 10),
		strconv.FormatInt(int64(j), 10),
		strconv.FormatFloat(x, 'g', -1, 64),
	}
}

type elem struct {
	I, J int
	X    float64
}

// DecodeCSV reads a dictionary written by EncodeCSV.
// Records may appear in any order.
func DecodeCSV(r io.Reader) (*Dict, error) {
	var (
		d         = new(Dict)
		hog, gray []elem
		geom      bool
	)
	rr := csv.NewReader(r)
	rr.FieldsPerRecord = -1
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		var field string
		field, rec = rec[0], rec[1:]
		switch field {
		case "geom":
			if err := parseGeom(rec, d); err != nil {
				return nil, err
			}
			geom = true
		case "hog":
			e, err := parseElem(rec)
			if err != nil {
				return nil, err
			}
			hog = append(hog, e)
		case "gray":
			e, err := parseElem(rec)
			if err != nil {
				return nil, err
			}
			gray = append(gray, e)
		default:
			return nil, fmt.Errorf("unknown field: %s", field)
		}
	}
	if !geom {
		return nil, errors.New("no geom record")
	}
	var err error
	if d.HOG, err = fill(hog); err != nil {
		return nil, errors.Wrap(err, "hog")
	}
	if d.Gray, err = fill(gray); err != nil {
		return nil, errors.Wrap(err, "gray")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func fill(elems []elem) (*mat.Dense, error) {
	if len(elems) == 0 {
		return nil, errors.New("no elements")
	}
	var m, n int
	for _, e := range elems {
		if e.I < 0 || e.J < 0 {
			return nil, fmt.Errorf("invalid index: (%d,%d)", e.I, e.J)
		}
		m, n = max(m, e.I+1), max(n, e.J+1)
	}
	a := mat.NewDense(m, n, nil)
	for _, e := range elems {
		a.Set(e.I, e.J, e.X)
	}
	return a, nil
}

func parseGeom(s []string, d *Dict) error {
	if err := errIfLenNotEq(4, len(s)); err != nil {
		return err
	}
	var err error
	if d.Ny, err = strconv.Atoi(s[0]); err != nil {
		return err
	}
	if d.Nx, err = strconv.Atoi(s[1]); err != nil {
		return err
	}
	if d.Sbin, err = strconv.Atoi(s[2]); err != nil {
		return err
	}
	d.Lambda, err = strconv.ParseFloat(s[3], 64)
	return err
}

func parseElem(s []string) (e elem, err error) {
	err = errIfLenNotEq(3, len(s))
	if err != nil {
		return
	}
	i, err := strconv.ParseInt(s[0], 10, 32)
	if err != nil {
		return
	}
	j, err := strconv.ParseInt(s[1], 10, 32)
	if err != nil {
		return
	}
	x, err := strconv.ParseFloat(s[2], 64)
	if err != nil {
		return
	}
	return elem{int(i), int(j), x}, nil
}

func errIfLenNotEq(want, got int) error {
	if want != got {
		return fmt.Errorf("wrong number of elements in line: %d (expect %d)", got, want)
	}
	return nil
}
