// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcscript

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_singleDomainSolidAndInterpolation(tst *testing.T) {
	chk.PrintTitle("bcscript: solid and interpolation tags")
	s := "domain #wing\n  solid 1 2\n  interpolation 5\n  importance 3\n"
	domains, err := Parse(s)
	if err != nil {
		tst.Fatalf("unexpected parse error: %v", err)
	}
	if len(domains) != 1 {
		tst.Fatalf("expected one domain, got %d", len(domains))
	}
	d := domains[0]
	chk.IntAssert(len(d.SolidTags), 2)
	chk.IntAssert(d.SolidTags[0], 1)
	chk.IntAssert(d.SolidTags[1], 2)
	chk.IntAssert(len(d.InterpolationTags), 1)
	chk.IntAssert(d.InterpolationTags[0], 5)
	chk.IntAssert(d.Importance, 3)
}

func Test_rangeExpansion(tst *testing.T) {
	chk.PrintTitle("bcscript: range marker expands inclusive")
	s := "domain #body\n  solid 3 : 7\n"
	domains, err := Parse(s)
	if err != nil {
		tst.Fatalf("unexpected parse error: %v", err)
	}
	want := []int{3, 4, 5, 6, 7}
	got := domains[0].SolidTags
	if len(got) != len(want) {
		tst.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		chk.IntAssert(got[i], want[i])
	}
}

func Test_sharedBlockAppliesToAllNames(tst *testing.T) {
	chk.PrintTitle("bcscript: one block assigns to every listed domain name")
	s := "domain #left #right\n  x-symmetry 9\n"
	domains, err := Parse(s)
	if err != nil {
		tst.Fatalf("unexpected parse error: %v", err)
	}
	if len(domains) != 2 {
		tst.Fatalf("expected two domains, got %d", len(domains))
	}
	if domains[0].Name != "left" || domains[1].Name != "right" {
		tst.Fatalf("unexpected domain names: %+v", domains)
	}
	chk.IntAssert(domains[0].XSymmetryTags[0], 9)
	chk.IntAssert(domains[1].XSymmetryTags[0], 9)
}

func Test_commentLinesIgnored(tst *testing.T) {
	chk.PrintTitle("bcscript: whole-line comments are skipped")
	s := "# this is a comment\ndomain #hull\nsolid 1\n"
	domains, err := Parse(s)
	if err != nil {
		tst.Fatalf("unexpected parse error: %v", err)
	}
	chk.IntAssert(len(domains), 1)
	chk.IntAssert(domains[0].SolidTags[0], 1)
}

func Test_unrecognizedKeywordIsConfigurationError(tst *testing.T) {
	chk.PrintTitle("bcscript: unknown keyword is a configuration error")
	s := "domain #wing\n  bogus 1\n"
	_, err := Parse(s)
	if err == nil {
		tst.Fatalf("expected a configuration error")
	}
}

func Test_importanceFuncReportsConstant(tst *testing.T) {
	chk.PrintTitle("bcscript: importance exposed as a constant function")
	d := Domain{Importance: 7}
	f := d.ImportanceFunc()
	chk.Scalar(tst, "importance(0)", 1e-15, f.F(0, nil), 7)
}
