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
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/weaviate/linesort/adapters/repos/extsort"
	"github.com/weaviate/linesort/usecases/lines"
)

func (a *app) addCommands(parser *flags.Parser) error {
	commands := []struct {
		name, short, long string
		data              flags.Commander
	}{
		{
			name:  "sort",
			short: "sort a file of newline-delimited records",
			long: "Sorts the input in byte order with bounded memory by spilling sorted runs " +
				"to an intermediate store and merging them. Duplicates are preserved.",
			data: &sortCommand{app: a},
		},
		{
			name:  "validate",
			short: "check that a file is sorted",
			data:  &validateCommand{app: a},
		},
		{
			name:  "diff-sorted",
			short: "split two sorted files into a-only, b-only and common records",
			data:  &diffCommand{app: a},
		},
		{
			name:  "json-extract-key",
			short: "extract the string value of a key from one JSON object per line",
			data:  &extractCommand{app: a},
		},
		{
			name:  "hash-lines",
			short: "write the seeded murmur3 hash of every line",
			data:  &hashCommand{app: a},
		},
	}

	for _, c := range commands {
		long := c.long
		if long == "" {
			long = c.short
		}
		if _, err := parser.AddCommand(c.name, c.short, long, c.data); err != nil {
			return errors.Wrapf(err, "register command %s", c.name)
		}
	}
	return nil
}

type sortCommand struct {
	app *app

	Input          string `long:"input" short:"i" required:"true" description:"file to sort"`
	Output         string `long:"output" short:"o" required:"true" description:"destination of the sorted file"`
	Store          string `long:"store" description:"exact path of the intermediate store, must not exist"`
	AssertDistinct bool   `long:"assert-distinct" description:"fail unless the sorted output is strictly increasing"`
}

func (c *sortCommand) Execute(args []string) error {
	cfg := c.app.config.Sort

	opts := []extsort.Option{
		extsort.WithBatchSize(cfg.BatchSize),
		extsort.WithStoreDir(cfg.StoreDir),
		extsort.WithRetainPolicy(extsort.RetainPolicy(cfg.RetainStore)),
		extsort.WithAvoidMmap(cfg.AvoidMmap),
		extsort.WithAsyncSpill(cfg.AsyncSpill),
		extsort.WithReadBufferSize(cfg.ReadBufferSize),
		extsort.WithWriteBufferSize(cfg.WriteBufferSize),
		extsort.WithLogger(c.app.logger),
		extsort.WithMetrics(extsort.NewMetrics(c.app.metrics)),
	}
	if c.Store != "" {
		opts = append(opts, extsort.WithStorePath(c.Store))
	}
	if c.AssertDistinct {
		opts = append(opts, extsort.WithOutputCheck(c.assertDistinct))
	}

	sorter, err := extsort.New(opts...)
	if err != nil {
		return err
	}

	outcome, err := sorter.SortFile(c.app.ctx, c.Input, c.Output)
	if outcome != nil {
		c.app.metrics.RecordLines("sort", result(err), outcome.Records)
	}
	return err
}

func (c *sortCommand) assertDistinct(sorted io.Reader) error {
	res, err := lines.Validate(sorted, true)
	if err != nil {
		return err
	}
	if !res.Sorted {
		return errors.Errorf("records %d and %d are not distinct",
			res.ViolationIndex, res.ViolationIndex+1)
	}
	return nil
}

type validateCommand struct {
	app *app

	Input  string `long:"input" short:"i" required:"true" description:"file to check"`
	Strict bool   `long:"strict" description:"require distinct records"`
}

func (c *validateCommand) Execute(args []string) error {
	in, err := os.Open(c.Input)
	if err != nil {
		return errors.Wrap(err, "open input")
	}
	defer in.Close()

	res, err := lines.Validate(in, c.Strict)
	if err != nil {
		return err
	}

	if !res.Sorted {
		c.app.metrics.RecordLines("validate", "unsorted", res.Records)
		return errors.Errorf("%s is not sorted: records %d and %d are out of order",
			c.Input, res.ViolationIndex, res.ViolationIndex+1)
	}

	c.app.metrics.RecordLines("validate", "sorted", res.Records)
	c.app.logger.WithField("action", "validate").
		WithField("input", c.Input).
		WithField("records", res.Records).
		WithField("strict", c.Strict).
		Info("input is sorted")
	return nil
}

type diffCommand struct {
	app *app

	InputA          string `long:"input-a" short:"a" required:"true" description:"first sorted file"`
	InputB          string `long:"input-b" short:"b" required:"true" description:"second sorted file"`
	OutputAMinusB   string `long:"output-a-minus-b" required:"true" description:"records only in a"`
	OutputBMinusA   string `long:"output-b-minus-a" required:"true" description:"records only in b"`
	OutputIntersect string `long:"output-intersect" required:"true" description:"records in both files"`
}

func (c *diffCommand) Execute(args []string) (err error) {
	a, err := os.Open(c.InputA)
	if err != nil {
		return errors.Wrap(err, "open input a")
	}
	defer a.Close()

	b, err := os.Open(c.InputB)
	if err != nil {
		return errors.Wrap(err, "open input b")
	}
	defer b.Close()

	var outputs [3]*os.File
	for i, path := range []string{c.OutputAMinusB, c.OutputBMinusA, c.OutputIntersect} {
		f, createErr := os.Create(path)
		if createErr != nil {
			return errors.Wrapf(createErr, "create output %q", path)
		}
		defer closeOutput(f, &err)
		outputs[i] = f
	}

	out, err := lines.DiffSorted(a, b, outputs[0], outputs[1], outputs[2])
	if err != nil {
		return err
	}

	c.app.metrics.RecordLines("diff_sorted", "a_only", out.AOnly)
	c.app.metrics.RecordLines("diff_sorted", "b_only", out.BOnly)
	c.app.metrics.RecordLines("diff_sorted", "both", out.Both)
	c.app.logger.WithField("action", "diff_sorted").
		WithField("a_only", out.AOnly).
		WithField("b_only", out.BOnly).
		WithField("both", out.Both).
		Info("diff complete")
	return nil
}

type extractCommand struct {
	app *app

	Key    string `long:"key" short:"k" required:"true" description:"the key to extract"`
	Input  string `long:"input" short:"i" required:"true" description:"file with one JSON object per line"`
	Output string `long:"output" short:"o" required:"true" description:"destination for the extracted values"`
}

func (c *extractCommand) Execute(args []string) (err error) {
	in, err := os.Open(c.Input)
	if err != nil {
		return errors.Wrap(err, "open input")
	}
	defer in.Close()

	out, err := os.Create(c.Output)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer closeOutput(out, &err)

	res, err := lines.ExtractJSONKey(in, out, c.Key)
	if err != nil {
		return err
	}

	c.app.metrics.RecordLines("json_extract_key", "written", res.Written)
	c.app.metrics.RecordLines("json_extract_key", "invalid", res.Invalid)
	c.app.metrics.RecordLines("json_extract_key", "missing", res.Missing)

	entry := c.app.logger.WithField("action", "json_extract_key").
		WithField("key", c.Key).
		WithField("written", res.Written).
		WithField("invalid", res.Invalid).
		WithField("missing", res.Missing)
	if res.Invalid > 0 || res.Missing > 0 {
		entry.Warn("some lines did not contain a string value for the key")
		return nil
	}
	entry.Info("extraction complete")
	return nil
}

type hashCommand struct {
	app *app

	Input  string `long:"input" short:"i" required:"true" description:"file to hash line by line"`
	Output string `long:"output" short:"o" required:"true" description:"destination for the hashes"`
	Seed   uint32 `long:"seed" default:"0" description:"murmur3 seed"`
}

func (c *hashCommand) Execute(args []string) (err error) {
	in, err := os.Open(c.Input)
	if err != nil {
		return errors.Wrap(err, "open input")
	}
	defer in.Close()

	out, err := os.Create(c.Output)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer closeOutput(out, &err)

	n, err := lines.HashLines(in, out, c.Seed)
	if err != nil {
		return err
	}

	c.app.metrics.RecordLines("hash_lines", "hashed", n)
	return nil
}

// closeOutput closes f and reports a close failure through err unless an
// earlier error is already set.
func closeOutput(f *os.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = errors.Wrapf(cerr, "close output %q", f.Name())
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
