// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dcif

import (
	"bytes"
	"encoding/binary"

	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/goverset/receptor"
	"github.com/cpmech/goverset/status"
)

// encodeLocal packs one rank's owned-node reports and fringe receptors
// into a byte payload for the AllGatherBytes round trip, the same manual
// little-endian framing assembler.go uses for its own cross-rank
// exchanges.
func encodeLocal(owned []NodeReport, receptors map[uint64]receptor.Receptor) ([]byte, *aerr.Error) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(len(owned)))
	for _, n := range owned {
		binary.Write(&buf, binary.LittleEndian, n.GlobalID)
		binary.Write(&buf, binary.LittleEndian, int32(n.Status))
		binary.Write(&buf, binary.LittleEndian, int32(n.Component))
	}
	binary.Write(&buf, binary.LittleEndian, int32(len(receptors)))
	for _, r := range receptors {
		binary.Write(&buf, binary.LittleEndian, r.GlobalID)
		binary.Write(&buf, binary.LittleEndian, int32(len(r.Donors)))
		for _, d := range r.Donors {
			binary.Write(&buf, binary.LittleEndian, d.GlobalID)
			binary.Write(&buf, binary.LittleEndian, int32(d.OwnerRank))
			binary.Write(&buf, binary.LittleEndian, d.Weight)
		}
	}
	return buf.Bytes(), nil
}

func decodeRank(blob []byte) ([]NodeReport, []receptor.Receptor, error) {
	r := bytes.NewReader(blob)
	var nnodes int32
	if err := binary.Read(r, binary.LittleEndian, &nnodes); err != nil {
		return nil, nil, err
	}
	nodes := make([]NodeReport, nnodes)
	for i := range nodes {
		if err := binary.Read(r, binary.LittleEndian, &nodes[i].GlobalID); err != nil {
			return nil, nil, err
		}
		var st, comp int32
		if err := binary.Read(r, binary.LittleEndian, &st); err != nil {
			return nil, nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &comp); err != nil {
			return nil, nil, err
		}
		nodes[i].Status = status.Status(st)
		nodes[i].Component = int(comp)
	}
	var nreceptors int32
	if err := binary.Read(r, binary.LittleEndian, &nreceptors); err != nil {
		return nil, nil, err
	}
	recs := make([]receptor.Receptor, nreceptors)
	for i := range recs {
		if err := binary.Read(r, binary.LittleEndian, &recs[i].GlobalID); err != nil {
			return nil, nil, err
		}
		var ndonors int32
		if err := binary.Read(r, binary.LittleEndian, &ndonors); err != nil {
			return nil, nil, err
		}
		recs[i].Donors = make([]receptor.DonorPoint, ndonors)
		for j := range recs[i].Donors {
			if err := binary.Read(r, binary.LittleEndian, &recs[i].Donors[j].GlobalID); err != nil {
				return nil, nil, err
			}
			var owner int32
			if err := binary.Read(r, binary.LittleEndian, &owner); err != nil {
				return nil, nil, err
			}
			recs[i].Donors[j].OwnerRank = int(owner)
			if err := binary.Read(r, binary.LittleEndian, &recs[i].Donors[j].Weight); err != nil {
				return nil, nil, err
			}
		}
	}
	return nodes, recs, nil
}
