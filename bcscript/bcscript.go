// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package bcscript parses the boundary-condition keyword script: a
// free-form, keyword-driven text block that assigns tag lists and an
// importance weight to one or more named domains.
package bcscript

import (
	"strings"

	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/utl"
)

// Domain is the tag assignment parsed for one `domain #NAME` block.
// Tag lists are BC-face tag integers, already range-expanded.
type Domain struct {
	Name              string
	SolidTags         []int
	InterpolationTags []int
	XSymmetryTags     []int
	YSymmetryTags     []int
	ZSymmetryTags     []int
	Importance        int
}

// ImportanceFunc exposes the domain's priority weight as a constant
// function, the same shape inp/func.go uses to hand named functions
// back to the solver rather than a bare number.
func (d Domain) ImportanceFunc() fun.Func {
	return fun.New("cte", fun.Prms{&fun.Prm{N: "c", V: float64(d.Importance)}})
}

var keywords = map[string]bool{
	"domain": true, "solid": true, "interpolation": true,
	"x-symmetry": true, "y-symmetry": true, "z-symmetry": true,
	"importance": true,
}

// Parse reads the whole script and returns one Domain per distinct
// name named by a `domain` keyword. A `domain #A #B solid 1 2` line
// assigns the same tag lists to both #A and #B, matching the
// original's one-block-many-names shorthand.
func Parse(text string) ([]Domain, *aerr.Error) {
	toks := tokenize(text)
	var domains []Domain
	i := 0
	for i < len(toks) {
		if toks[i] != "domain" {
			return nil, aerr.New(aerr.Configuration, "expected 'domain' keyword, got %q", toks[i])
		}
		i++
		var names []string
		for i < len(toks) && strings.HasPrefix(toks[i], "#") {
			names = append(names, strings.TrimPrefix(toks[i], "#"))
			i++
		}
		if len(names) == 0 {
			return nil, aerr.New(aerr.Configuration, "'domain' keyword with no #NAME following")
		}
		var d Domain
		var err *aerr.Error
		i, err = parseBlock(toks, i, &d)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			dd := d
			dd.Name = name
			domains = append(domains, dd)
		}
	}
	return domains, nil
}

func parseBlock(toks []string, i int, d *Domain) (int, *aerr.Error) {
	for i < len(toks) && toks[i] != "domain" {
		switch toks[i] {
		case "solid":
			i++
			d.SolidTags, i = extractTags(toks, i)
		case "interpolation":
			i++
			d.InterpolationTags, i = extractTags(toks, i)
		case "x-symmetry":
			i++
			d.XSymmetryTags, i = extractTags(toks, i)
		case "y-symmetry":
			i++
			d.YSymmetryTags, i = extractTags(toks, i)
		case "z-symmetry":
			i++
			d.ZSymmetryTags, i = extractTags(toks, i)
		case "importance":
			i++
			if i >= len(toks) {
				return i, aerr.New(aerr.Configuration, "'importance' keyword with no value")
			}
			d.Importance = utl.Atoi(toks[i])
			i++
		default:
			return i, aerr.New(aerr.Configuration, "unrecognized keyword %q in boundary-condition script", toks[i])
		}
	}
	return i, nil
}

// extractTags reads a run of integers, expanding `A : B` into the
// inclusive range A..B, and stops at the first keyword token.
func extractTags(toks []string, i int) ([]int, int) {
	var tags []int
	for i < len(toks) {
		if keywords[toks[i]] {
			break
		}
		if toks[i] == ":" {
			i++
			if i >= len(toks) || len(tags) == 0 {
				break
			}
			last := utl.Atoi(toks[i])
			for v := tags[len(tags)-1] + 1; v <= last; v++ {
				tags = append(tags, v)
			}
			i++
			continue
		}
		tags = append(tags, utl.Atoi(toks[i]))
		i++
	}
	return tags, i
}

// tokenize strips `#` comment lines and splits on whitespace, keeping
// a leading `#` on domain-name tokens (`#wing`) since that marks a
// name rather than a comment: only a `#` that starts a line is a
// comment, matching the original lexer's line-oriented comment rule.
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
