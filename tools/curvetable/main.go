package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/enginekit/curve"
	"github.com/mogaika/enginekit/utils"
)

func load(path string, animation int) (*curve.Set, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		doc, err := gltf.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to open gltf")
		}
		return curve.FromGLTF(doc, animation)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return curve.LoadSet(f)
	}
}

func main() {
	var precision, animation int
	var min, max float64
	var dump, normalize bool
	flag.IntVar(&precision, "precision", 64, "Samples per curve")
	flag.IntVar(&animation, "anim", 0, "Animation index for gltf input")
	flag.Float64Var(&min, "min", 0, "Clamp table values to min")
	flag.Float64Var(&max, "max", 1, "Clamp table values to max")
	flag.BoolVar(&dump, "dump", false, "Dump the loaded curve set")
	flag.BoolVar(&normalize, "yaml", false, "Print the curve set as yaml instead of the table")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] curves.yaml|animation.gltf\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if precision < 2 {
		precision = 2
	}

	clamped := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "min" || f.Name == "max" {
			clamped = true
		}
	})

	set, err := load(flag.Arg(0), animation)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Loaded %d curve(s) from %s", set.Len(), flag.Arg(0))

	if dump {
		utils.FDump(os.Stderr, set)
	}

	if normalize {
		if err := curve.SaveSet(os.Stdout, set); err != nil {
			log.Fatal(err)
		}
		return
	}

	var table []float32
	if clamped {
		table = set.QuantizeClamped(precision, float32(min), float32(max))
	} else {
		table = set.Quantize(precision)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{
		"precision": precision,
		"curves":    set.Len(),
		"table":     table,
	}); err != nil {
		log.Fatal(err)
	}
}
