package engine

import (
	"fmt"
	"strings"
)

// renderDeck turns a spec into keyword blocks. The step block starts
// with the "** STEP: <name>" banner so anchored patching lands
// directives right before it.
func renderDeck(spec ModelSpec) *Deck {
	d := NewDeck(fmt.Sprintf("*Heading\n** Model: %s", spec.Name))

	g := spec.Geometry
	var geo strings.Builder
	fmt.Fprintf(&geo, "** Geometry: web %gx%g t=%g, %d segment(s) of %g\n",
		g.Length, g.TotalHeight, g.WebThickness, g.SegmentCount, g.SegmentHeight)
	fmt.Fprintf(&geo, "*Part, name=MEMBER\n*Shell Section, elset=WEB, material=STEEL_WEB\n%g,", g.WebThickness)
	if g.FlangeOn {
		fmt.Fprintf(&geo, "\n*Shell Section, elset=FLANGE, material=STEEL_FLANGE\n%g,", g.FlangeThickness)
	}
	geo.WriteString("\n*End Part")
	d.Append(geo.String())

	d.Append(renderMaterial("STEEL_WEB", spec.Materials, false))
	if g.FlangeOn {
		d.Append(renderMaterial("STEEL_FLANGE", spec.Materials, true))
	}

	for i, c := range spec.Couplings {
		if c.Name == "" {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "*Node, nset=%s\n 9%d, %g, %g, %g\n", c.Name, i+1,
			c.Point[0], c.Point[1], c.Point[2])
		fmt.Fprintf(&b, "*Coupling, constraint name=CPL_%s, ref node=%s, surface=END_%s\n*Kinematic",
			c.Name, c.Name, c.Name)
		d.Append(b.String())
	}

	d.Append(renderBoundary(spec))

	switch {
	case spec.Step.Buckle != nil:
		d.Append(renderBuckleStep(spec))
	case spec.Step.Riks != nil:
		d.Append(renderRiksStep(spec))
	}

	return d
}

func renderMaterial(name string, m Materials, flange bool) string {
	c := m.Web
	if flange {
		c = m.Flange
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Material, name=%s\n*Elastic\n %g, 0.3", name, c.E)
	if !m.ElasticOnly {
		epsY := c.Fy / c.E
		fmt.Fprintf(&b, "\n*Plastic\n %g, 0.\n %g, %g\n %g, %g",
			c.Fy, c.Fy, c.PlateauStrain, c.Fu, c.EpsU-epsY)
	}
	return b.String()
}

func renderBoundary(spec ModelSpec) string {
	var b strings.Builder
	b.WriteString("** BOUNDARY CONDITIONS")
	labels := [2]string{"BC_BOT", "BC_TOP"}
	for i, dof := range spec.Fixity {
		set := spec.Couplings[i].Name
		if set == "" {
			continue
		}
		fmt.Fprintf(&b, "\n*Boundary, name=%s", labels[i])
		for a := 0; a < 3; a++ {
			if dof.U[a] {
				fmt.Fprintf(&b, "\n%s, %d, %d", set, a+1, a+1)
			}
			if dof.UR[a] {
				fmt.Fprintf(&b, "\n%s, %d, %d", set, a+4, a+4)
			}
		}
	}
	return b.String()
}

func renderBuckleStep(spec ModelSpec) string {
	st := spec.Step.Buckle
	top := spec.Couplings[1].Name
	var b strings.Builder
	fmt.Fprintf(&b, "** ----------------------------------------------------------------\n** STEP: %s\n**\n", spec.Step.Name)
	fmt.Fprintf(&b, "*Step, name=%s, perturbation\n*Buckle\n%d, , LANCZOS\n", spec.Step.Name, st.NumEigen)
	fmt.Fprintf(&b, "*Cload\n")
	for a := 0; a < 3; a++ {
		if st.Ref[a] != 0 {
			fmt.Fprintf(&b, "%s, %d, %g\n", top, a+1, st.Ref[a])
		}
	}
	for a := 0; a < 3; a++ {
		if st.FreeTopAxes[a] {
			fmt.Fprintf(&b, "** FREED: %s U%d\n", top, a+1)
		}
	}
	b.WriteString("*End Step")
	return b.String()
}

func renderRiksStep(spec ModelSpec) string {
	st := spec.Step.Riks
	top := spec.Couplings[1].Name
	var b strings.Builder
	fmt.Fprintf(&b, "** ----------------------------------------------------------------\n** STEP: %s\n**\n", spec.Step.Name)
	fmt.Fprintf(&b, "*Step, name=%s, nlgeom=YES, inc=%d\n*Static, riks\n%g, 1., %g, %g, , %s, %d, %g\n",
		spec.Step.Name, st.MaxIncrements, st.InitialArcInc, st.MinArcInc, st.MaxArcInc,
		top, int(st.DOF), st.MaxDisp)
	fmt.Fprintf(&b, "*Boundary, op=NEW\n%s, %d, %d, %g\n", top, int(st.DOF), int(st.DOF), st.MaxDisp)
	if spec.History != nil {
		fmt.Fprintf(&b, "*Output, history\n*Node Output, nset=%s\n%s\n",
			spec.History.Set, strings.Join(spec.History.Outputs, ", "))
	}
	b.WriteString("*End Step")
	return b.String()
}
