package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/uestcxi/ihog/consist"
	"github.com/uestcxi/ihog/featgrid"
	"github.com/uestcxi/ihog/fhog"
	"github.com/uestcxi/ihog/invert"
	"github.com/uestcxi/ihog/pairdict"
	"gorgonia.org/tensor"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage:", os.Args[0], "[flags] dict.(gob|json|csv) image... out.png")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Computes the HOG features of one or more images and inverts them as a batch.")
		fmt.Fprintln(os.Stderr, "Images are resized to the size of the first.")
		fmt.Fprintln(os.Stderr, "With several images, image j is saved to out_j.png.")
		fmt.Fprintln(os.Stderr, "Pass i > 1 is saved to out-i.png or out_j-i.png.")
		flag.PrintDefaults()
	}
}

func main() {
	var (
		passes    = flag.Int("passes", 1, "Number of inversions. Each pass is tied to the previous ones.")
		gam       = flag.Float64("gam", consist.DefaultGam, "Weight of agreement with previous passes.")
		sig       = flag.Float64("sig", consist.DefaultSig, "Blur of previous passes. Negative for high-pass, zero for none.")
		scale     = flag.Float64("scale", 1, "Scale factor applied to the output images.")
		optsFile  = flag.String("opts", "", "JSON file of inversion options. Fields not present keep their defaults.")
		codesFile = flag.String("codes", "", "Save the codes of all passes to an npy file of shape [atoms, windows, passes].")
		verbose   = flag.Bool("v", false, "Log a summary of each pass.")
	)
	flag.Parse()
	if flag.NArg() < 3 {
		flag.Usage()
		os.Exit(1)
	}
	var (
		dictFile = flag.Arg(0)
		imFiles  = flag.Args()[1 : flag.NArg()-1]
		outFile  = flag.Arg(flag.NArg() - 1)
	)

	opts := invert.DefaultOpts()
	if *optsFile != "" {
		if err := loadJSON(*optsFile, &opts); err != nil {
			log.Fatalln("load options:", err)
		}
	}
	if *verbose {
		opts.Verbose = true
	}

	dict, err := pairdict.File(dictFile).Dict()
	if err != nil {
		log.Fatalln("load dictionary:", err)
	}
	log.Printf("dictionary: %d atoms, window %dx%d, sbin %d", dict.Atoms(), dict.Ny, dict.Nx, dict.Sbin)

	ims := make([]image.Image, len(imFiles))
	for j, name := range imFiles {
		ims[j], err = loadImage(name)
		if err != nil {
			log.Fatalln("load image:", err)
		}
	}
	feat, err := features(ims, dict.Sbin)
	if err != nil {
		log.Fatalln("compute features:", err)
	}
	log.Printf("features: %d x %d x %d, batch %d", feat.Width(), feat.Height(), feat.Channels(), feat.Batch())

	state := &consist.State{Gam: *gam, Sig: *sig}
	for i := 0; i < *passes; i++ {
		log.Printf("pass %d of %d", i+1, *passes)
		out, next, err := invert.Invert(feat, dict, state, opts)
		if err != nil {
			log.Fatalln("invert:", err)
		}
		state = next
		for j := range ims {
			fname := passFile(itemFile(outFile, j, len(ims)), i)
			if err := savePNG(fname, scaleImage(toImage(out, j), *scale)); err != nil {
				log.Fatalln("save image:", err)
			}
			log.Println("saved", fname)
		}
	}

	if *codesFile != "" {
		if err := saveNpy(*codesFile, state.Tensor()); err != nil {
			log.Fatalln("save codes:", err)
		}
		log.Println("saved", *codesFile)
	}
}

// features computes the HOG features of a batch of images.
// Every image is resized to the size of the first.
func features(ims []image.Image, sbin int) (*featgrid.Grid, error) {
	if len(ims) == 0 {
		return nil, errors.New("no images")
	}
	size := ims[0].Bounds()
	grids := make([]*featgrid.Grid, len(ims))
	for j, im := range ims {
		if b := im.Bounds(); b.Dx() != size.Dx() || b.Dy() != size.Dy() {
			im = resize.Resize(uint(size.Dx()), uint(size.Dy()), im, resize.Bilinear)
		}
		grids[j] = fhog.Compute(fhog.FromImage(im), sbin)
	}
	return featgrid.Stack(grids...)
}

// itemFile gives the output file of image j of n.
func itemFile(fname string, j, n int) string {
	if n == 1 {
		return fname
	}
	ext := filepath.Ext(fname)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(fname, ext), j+1, ext)
}

// passFile gives the output file of pass i.
func passFile(fname string, i int) string {
	if i == 0 {
		return fname
	}
	ext := filepath.Ext(fname)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(fname, ext), i+1, ext)
}

func saveNpy(fname string, t *tensor.Dense) error {
	if t == nil {
		return errors.New("empty tensor")
	}
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := t.WriteNpy(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadJSON(fname string, v interface{}) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
