// Package section derives the built-up member geometry from a
// parameter set: overall dimensions, the auto-plate decision and the
// tolerance boxes used to select nodes near ends and flange bands.
//
// Axis convention: Z runs along the member, Y spans the section height,
// X spans the flange width. The section sits in X ∈ [-b/2, b/2],
// Y ∈ [0, H], Z ∈ [0, L].
package section

import (
	"fmt"

	"github.com/steelspec/bucklab/internal/params"
)

// Descriptor is the resolved geometry of one specimen.
type Descriptor struct {
	SegmentHeight   float64
	SegmentCount    int
	TotalHeight     float64
	FlangeWidth     float64
	WebThickness    float64
	FlangeThickness float64
	Length          float64
	MeshSize        float64

	// FlangeOn reports whether edge flange plates are modeled. The
	// auto-plate rule drops them when the flange would not extend past
	// the web thickness.
	FlangeOn bool
}

// Describe resolves a parameter set into a geometry descriptor.
func Describe(p params.Set) Descriptor {
	d := Descriptor{
		SegmentHeight:   p.SegmentHeight,
		SegmentCount:    p.SegmentCount,
		TotalHeight:     p.SegmentHeight * float64(p.SegmentCount),
		FlangeWidth:     p.FlangeWidth,
		WebThickness:    p.WebThickness,
		FlangeThickness: p.FlangeThickness,
		Length:          p.Length,
		MeshSize:        p.MeshSize,
		FlangeOn:        true,
	}
	if p.AutoPlate == 1 && p.FlangeWidth <= p.WebThickness+p.PlateTol {
		d.FlangeOn = false
	}
	return d
}

// Name is the specimen directory name, built from the rounded overall
// dimensions.
func (d Descriptor) Name() string {
	return fmt.Sprintf("H%d_b%d_t%d_L%d",
		int(d.TotalHeight), int(d.FlangeWidth), int(d.WebThickness), int(d.Length))
}

// FlangeBandTol is the half-width of the band used to pick flange
// elements along segment borders. It scales with mesh and segment size
// so coarse meshes still capture one element row.
func (d Descriptor) FlangeBandTol() float64 {
	return max(1.0, 0.05*d.MeshSize, 0.02*d.SegmentHeight)
}

// EndCaptureTol is the slab thickness used to select end nodes for the
// coupling regions.
func (d Descriptor) EndCaptureTol() float64 {
	return max(1e-3, 0.001*d.Length, 0.2*d.MeshSize)
}

// ControlOffset is how far beyond the member end the reference points
// sit.
func (d Descriptor) ControlOffset() float64 {
	return 0.01 * d.Length
}

// Box is an axis-aligned selection volume.
type Box struct {
	Min [3]float64
	Max [3]float64
}

// Contains reports whether a point lies inside the box, borders
// included.
func (b Box) Contains(p [3]float64) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// EndBox returns the node-selection slab at one member end, padded by
// the capture tolerance on all axes.
func (d Descriptor) EndBox(top bool) Box {
	tol := d.EndCaptureTol()
	b := Box{
		Min: [3]float64{-d.FlangeWidth/2 - tol, -tol, -tol},
		Max: [3]float64{d.FlangeWidth/2 + tol, d.TotalHeight + tol, tol},
	}
	if top {
		b.Min[2] = d.Length - tol
		b.Max[2] = d.Length + tol
	}
	return b
}

// ControlPoint returns the reference-point location for one end: the
// section centroid pushed outward by the control offset.
func (d Descriptor) ControlPoint(top bool) [3]float64 {
	z := -d.ControlOffset()
	if top {
		z = d.Length + d.ControlOffset()
	}
	return [3]float64{0, d.TotalHeight / 2, z}
}
