// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package balance

import (
	"encoding/binary"
	"math"
)

func f64bytes(v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

func bytesF64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
