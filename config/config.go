// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package config parses overset.config, a whitespace keyword stream
// recognized at startup.
package config

import (
	"strings"

	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/gosl/utl"
)

// Config holds every recognized overset.config option, defaulted the
// way the original's setDefaults() does.
type Config struct {
	RanksToTrace            []int
	TraceBasename           string
	ExtraLayersForInterpBCs int
	TargetVoxelSize         int
	MaxHoleMapCells         int
	MaxReceptors            bool
	LoadBalancer            int
	RCBAgglomerationSize    int
	DumpFun3DPartFile       bool
	DumpPartitionExtents    bool
	ComponentGridImportance []int
	MultiOverlapMaskCells   int
}

// Default returns the option set with the original's defaults.
func Default() Config {
	return Config{
		TraceBasename:           "overset",
		ExtraLayersForInterpBCs: 1,
		TargetVoxelSize:         25000,
		MaxHoleMapCells:         8000,
		RCBAgglomerationSize:    256,
		// matches status.DefaultMultiOverlapMaskCells.
		MultiOverlapMaskCells: 4096,
	}
}

var keywords = map[string]bool{
	"trace": true, "trace-basename": true,
	"extra-layers-for-interpolation-bcs": true, "target-voxel-size": true,
	"max-hole-map-cells": true, "max-receptors": true, "load-balancer": true,
	"rcb": true, "dump": true, "component-grid-importance": true,
	"multi-overlap-mask-cells": true,
}

// Parse reads the whole configuration stream, starting from Default().
func Parse(text string) (Config, *aerr.Error) {
	cfg := Default()
	toks := tokenize(text)
	for i := 0; i < len(toks); {
		if !keywords[toks[i]] {
			return cfg, aerr.New(aerr.Configuration, "unrecognized keyword %q", toks[i])
		}
		var err *aerr.Error
		i, err = processKeyword(&cfg, toks, i)
		if err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func processKeyword(cfg *Config, toks []string, i int) (int, *aerr.Error) {
	keyword := toks[i]
	i++
	switch keyword {
	case "trace":
		for i < len(toks) && !keywords[toks[i]] {
			cfg.RanksToTrace = append(cfg.RanksToTrace, utl.Atoi(toks[i]))
			i++
		}
	case "trace-basename":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'trace-basename' with no value")
		}
		cfg.TraceBasename = toks[i]
		i++
	case "extra-layers-for-interpolation-bcs":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'extra-layers-for-interpolation-bcs' with no value")
		}
		cfg.ExtraLayersForInterpBCs = utl.Atoi(toks[i])
		i++
	case "target-voxel-size":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'target-voxel-size' with no value")
		}
		cfg.TargetVoxelSize = utl.Atoi(toks[i])
		i++
	case "max-hole-map-cells":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'max-hole-map-cells' with no value")
		}
		cfg.MaxHoleMapCells = utl.Atoi(toks[i])
		i++
	case "max-receptors":
		cfg.MaxReceptors = true
	case "multi-overlap-mask-cells":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'multi-overlap-mask-cells' with no value")
		}
		cfg.MultiOverlapMaskCells = utl.Atoi(toks[i])
		i++
	case "load-balancer":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'load-balancer' with no value")
		}
		cfg.LoadBalancer = utl.Atoi(toks[i])
		i++
	case "rcb":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'rcb' with no value")
		}
		cfg.RCBAgglomerationSize = utl.Atoi(toks[i])
		i++
	case "dump":
		if i >= len(toks) {
			return i, aerr.New(aerr.Configuration, "'dump' with no command")
		}
		switch toks[i] {
		case "fun3d-part-file":
			cfg.DumpFun3DPartFile = true
		case "partition-extents":
			cfg.DumpPartitionExtents = true
		default:
			return i, aerr.New(aerr.Configuration, "unrecognized dump command %q", toks[i])
		}
		i++
	case "component-grid-importance":
		for i < len(toks) && !keywords[toks[i]] {
			cfg.ComponentGridImportance = append(cfg.ComponentGridImportance, utl.Atoi(toks[i]))
			i++
		}
	}
	return i, nil
}

func tokenize(text string) []string {
	var toks []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		toks = append(toks, strings.Fields(line)...)
	}
	return toks
}

// ShouldTrace reports whether this rank is in the trace list.
func (c Config) ShouldTrace(rank int) bool {
	for _, r := range c.RanksToTrace {
		if r == rank {
			return true
		}
	}
	return false
}

// ImportanceByComponent turns the flat per-component priority list into
// the map shape assembler.Options.Importance expects.
func (c Config) ImportanceByComponent() map[int]float64 {
	m := make(map[int]float64, len(c.ComponentGridImportance))
	for comp, v := range c.ComponentGridImportance {
		m[comp] = float64(v)
	}
	return m
}
