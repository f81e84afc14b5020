package main

import (
	"bufio"
	"context"
	"io"
	"os"

	grabber "github.com/sandexzx/PDF-Matrix-Grabber"
	"github.com/sandexzx/PDF-Matrix-Grabber/decode"
	"github.com/sandexzx/PDF-Matrix-Grabber/internal/workerproto"
	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// workerSubcommand is the hidden arg the parent process re-execs with to
// put the binary into worker mode instead of the normal CLI (SPEC_FULL.md's
// process-level worker pool). It mirrors workerproto.WorkerArg exactly.
const workerSubcommand = workerproto.WorkerArg

// runWorker is the worker process's entire lifecycle: read one WorkTask per
// line from stdin, run it, write one WorkResult per line to stdout, until
// stdin closes. It never touches the CLI flag parser.
func runWorker() {
	rz := raster.NewPopplerRasterizer()
	dec := decode.NewDmtxReadDecoder()

	in := workerproto.NewDecoder(bufio.NewReader(os.Stdin))
	out := workerproto.NewEncoder(os.Stdout)

	ctx := context.Background()

	for {
		var wireTask workerproto.WorkTask
		if err := in.Decode(&wireTask); err != nil {
			if err == io.EOF {
				return
			}
			os.Exit(1)
		}

		task, cfg := grabber.TaskFromWire(wireTask)
		outcomes := grabber.PageWorker(ctx, rz, dec, task, cfg)

		result := workerproto.WorkResult{Outcomes: grabber.OutcomesToWire(outcomes)}
		if err := out.Encode(result); err != nil {
			os.Exit(1)
		}
	}
}
