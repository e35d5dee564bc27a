// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conv

// regionKind says how a region of the output plane is computed.
type regionKind uint8

const (
	// regionBulk is tiled into lanes x lanes blocks and vectorized.
	regionBulk regionKind = iota
	// regionRight holds the columns past the last full tile, for every row.
	// It owns the bottom-right corner.
	regionRight
	// regionBottom holds the rows past the last full tile, for the bulk
	// columns only.
	regionBottom
)

func (k regionKind) String() string {
	switch k {
	case regionBulk:
		return "bulk"
	case regionRight:
		return "right"
	case regionBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// region is the half-open rectangle [w0,w1) x [h0,h1) of one output plane.
type region struct {
	kind   regionKind
	w0, w1 int
	h0, h1 int
}

func (r region) pixels() int {
	return (r.w1 - r.w0) * (r.h1 - r.h0)
}

// planRegions splits a width x height plane into at most three disjoint
// regions covering every pixel once:
//
//	 w=0        wb   width
//	h=0 +----------+--+
//	    |          |  |
//	    |   bulk   |  |
//	    |          |right
//	hb  +----------+  |
//	    |  bottom  |  |
//	height---------+--+
//
// wb and hb are width and height rounded down to a multiple of lanes.
// Empty regions are omitted.
func planRegions(width, height, lanes int) []region {
	wb := width - width%lanes
	hb := height - height%lanes

	regions := make([]region, 0, 3)
	if wb > 0 && hb > 0 {
		regions = append(regions, region{kind: regionBulk, w0: 0, w1: wb, h0: 0, h1: hb})
	}
	if wb < width {
		regions = append(regions, region{kind: regionRight, w0: wb, w1: width, h0: 0, h1: height})
	}
	if wb > 0 && hb < height {
		regions = append(regions, region{kind: regionBottom, w0: 0, w1: wb, h0: hb, h1: height})
	}
	return regions
}
