// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command goverset is a thin demonstration entry point wiring
// overset.config, a boundary-condition script, and a small built-in
// two-component mesh through assembler.Driver, optionally writing the
// result as a DCIF file. Real mesh I/O, visualization, and host-solver
// adapters are out of scope; this exists to exercise the pipeline end
// to end, not to replace the host solver.
package main

import (
	"flag"
	"os"

	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/goverset/assembler"
	"github.com/cpmech/goverset/bcscript"
	"github.com/cpmech/goverset/config"
	"github.com/cpmech/goverset/dcif"
	"github.com/cpmech/goverset/holemap"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/trace"
	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"
	"github.com/cpmech/gosl/utl"
)

func main() {
	defer func() {
		if mpi.Rank() == 0 {
			if err := recover(); err != nil {
				io.PfRed("ERROR: %v\n", err)
			}
		}
		mpi.Stop(false)
	}()
	mpi.Start(false)

	io.Pf("\n")
	utl.PfWhite("goverset -- parallel overset-grid domain assembler\n\n")

	configPath := flag.String("config", "overset.config", "overset.config path")
	bcPath := flag.String("bc", "", "boundary-condition script path (optional)")
	dcifPath := flag.String("dcif", "", "write a DCIF file to this path (optional)")
	flag.Parse()

	cfg := config.Default()
	if text, err := io.ReadFile(*configPath); err == nil {
		var cerr *aerr.Error
		cfg, cerr = config.Parse(string(text))
		if cerr != nil {
			utl.Panic("config: %v", cerr)
		}
	}

	var domains []bcscript.Domain
	if *bcPath != "" {
		text, err := io.ReadFile(*bcPath)
		if err != nil {
			utl.Panic("cannot read boundary-condition script %s: %v", *bcPath, err)
		}
		var berr *aerr.Error
		domains, berr = bcscript.Parse(string(text))
		if berr != nil {
			utl.Panic("bcscript: %v", berr)
		}
	}
	for _, d := range domains {
		io.Pf("domain %s: solid=%v interpolation=%v importance=%d\n",
			d.Name, d.SolidTags, d.InterpolationTags, d.Importance)
	}

	comm := xmpi.New()
	var sink *trace.Sink
	if cfg.ShouldTrace(comm.Rank()) {
		var err error
		sink, err = trace.Open(cfg.TraceBasename, comm.Rank())
		if err != nil {
			utl.Panic("cannot open trace file: %v", err)
		}
		defer sink.Close()
	}

	v := demoMesh()
	driver := assembler.NewDriver(comm, sink)
	opts := assembler.Options{
		ExtraLayers:           cfg.ExtraLayersForInterpBCs,
		MaxHoleMapCells:       cfg.MaxHoleMapCells,
		BalanceTarget:         cfg.RCBAgglomerationSize,
		Importance:            cfg.ImportanceByComponent(),
		PromoteMaxReceptors:   cfg.MaxReceptors,
		MultiOverlapMaskCells: cfg.MultiOverlapMaskCells,
	}
	result, aerrv := driver.Run(v, map[int][]holemap.Face{}, opts)
	if aerrv != nil {
		utl.Panic("assembly failed: %v", aerrv)
	}

	for i, s := range result.Statuses {
		io.Pf("node %d: global=%d status=%v\n", i, v.NodeGlobalID(i), s)
	}

	if *dcifPath != "" {
		owned := make([]dcif.NodeReport, 0, v.NodeCount())
		for i := 0; i < v.NodeCount(); i++ {
			if v.NodeOwner(i) != comm.Rank() {
				continue
			}
			owned = append(owned, dcif.NodeReport{
				GlobalID: v.NodeGlobalID(i), Status: result.Statuses[i], Component: v.NodeComponent(i),
			})
		}
		f, err := os.Create(*dcifPath)
		if err != nil {
			utl.Panic("cannot create dcif file %s: %v", *dcifPath, err)
		}
		defer f.Close()
		if err := dcif.Write(comm, f, owned, result.Receptors); err != nil {
			utl.Panic("dcif write failed: %v", err)
		}
	}
}

// demoMesh builds the same small two-component fixture used across this
// module's tests: a solid-surfaced tet (component 0) overlapped by a
// second tet whose far vertex sits on an interpolation boundary
// (component 1), to give the pipeline something concrete to assemble.
func demoMesh() *mesh.ArrayView {
	return &mesh.ArrayView{
		Positions: [][3]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
			{0.2, 0.2, 0.2}, {1.2, 0.2, 0.2}, {0.2, 1.2, 0.2}, {0.2, 0.2, 1.2},
		},
		GlobalIDs:  []uint64{0, 1, 2, 3, 4, 5, 6, 7},
		Owners:     []int{0, 0, 0, 0, 0, 0, 0, 0},
		Components: []int{0, 0, 0, 0, 1, 1, 1, 1},
		NodeTags: []mesh.BCTag{
			mesh.Solid, mesh.Solid, mesh.Solid, mesh.NotABoundary,
			mesh.NotABoundary, mesh.NotABoundary, mesh.NotABoundary, mesh.Interpolation,
		},
		Types: []mesh.CellType{mesh.Tet, mesh.Tet},
		Cells: [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}},
	}
}
