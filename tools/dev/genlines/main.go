//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"slices"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type options struct {
	Count    int    `long:"count" default:"10000" description:"number of values to draw"`
	Length   int    `long:"length" default:"7" description:"zero padded width of every line"`
	Max      int64  `long:"max" default:"1000000" description:"largest value drawn"`
	Seed     int64  `long:"seed" default:"1" description:"random seed"`
	Sorted   bool   `long:"sorted" description:"write the lines in ascending order"`
	Distinct bool   `long:"distinct" description:"drop duplicate values"`
	Output   string `long:"output" short:"o" required:"true" description:"file to write"`
}

func main() {
	logger := logrus.New()

	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		logger.WithError(err).Fatal("create output")
	}

	if err := generate(f, opts); err != nil {
		f.Close()
		logger.WithError(err).Fatal("generate lines")
	}
	if err := f.Close(); err != nil {
		logger.WithError(err).Fatal("close output")
	}

	logger.WithField("output", opts.Output).
		WithField("count", opts.Count).
		WithField("seed", opts.Seed).
		Info("generated lines")
}

func generate(w io.Writer, opts options) error {
	if opts.Count < 0 || opts.Max < 0 {
		return errors.New("count and max must not be negative")
	}

	r := rand.New(rand.NewSource(opts.Seed))
	values := make([]int64, opts.Count)
	for i := range values {
		values[i] = r.Int63n(opts.Max + 1)
	}

	if opts.Sorted || opts.Distinct {
		slices.Sort(values)
	}
	if opts.Distinct {
		values = slices.Compact(values)
		if !opts.Sorted {
			r.Shuffle(len(values), func(i, j int) {
				values[i], values[j] = values[j], values[i]
			})
		}
	}

	bw := bufio.NewWriter(w)
	for _, v := range values {
		if _, err := fmt.Fprintf(bw, "%0*d\n", opts.Length, v); err != nil {
			return errors.Wrap(err, "write line")
		}
	}
	return bw.Flush()
}
