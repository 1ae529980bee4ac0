package peak_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/steelspec/bucklab/internal/peak"
)

var _ = Describe("Select", func() {
	var times []float64

	series := func(vals ...float64) []float64 { return vals }

	BeforeEach(func() {
		times = nil
	})

	timesFor := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(i) * 0.05
		}
		return out
	}

	Context("with a peak followed by a sustained drop", func() {
		// Rises to 10, sheds load, then climbs to a higher late maximum.
		curve := series(0, 4, 8, 10, 8, 3, 2.5, 2.4, 6, 9, 11, 10, 5)

		It("reports the first qualifying peak, not the late maximum", func() {
			times = timesFor(len(curve))
			d := peak.Select(times, curve, peak.Options{})
			Expect(d.Kind).To(Equal(peak.PeakBeforeDrop))
			Expect(d.Index).To(Equal(3))
			Expect(d.LPF).To(Equal(10.0))
			Expect(d.Time).To(BeNumerically("~", 0.15, 1e-9))
		})

		It("keeps the original sign on inverted curves", func() {
			flipped := make([]float64, len(curve))
			for i, v := range curve {
				flipped[i] = -v
			}
			d := peak.Select(timesFor(len(curve)), flipped, peak.Options{})
			Expect(d.Kind).To(Equal(peak.PeakBeforeDrop))
			Expect(d.Index).To(Equal(3))
			Expect(d.LPF).To(Equal(-10.0))
		})

		It("falls back to the global maximum when persistence is strict", func() {
			d := peak.Select(timesFor(len(curve)), curve, peak.Options{PersistN: 10})
			Expect(d.Kind).To(Equal(peak.GlobalMax))
			Expect(d.Index).To(Equal(10))
			Expect(d.LPF).To(Equal(11.0))
		})
	})

	Context("with a plateau followed by a one-step collapse", func() {
		curve := series(0, 20, 40, 60, 80, 100, 100, 100, 100, 100, 10, 10, 10, 10)

		It("reports the earliest plateau increment the smoothing allows", func() {
			d := peak.Select(timesFor(len(curve)), curve, peak.Options{})
			Expect(d.Kind).To(Equal(peak.PeakBeforeDrop))
			Expect(d.Index).To(Equal(6))
			Expect(d.LPF).To(Equal(100.0))
		})
	})

	Context("with a monotonically rising curve", func() {
		curve := series(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

		It("reports the global maximum", func() {
			d := peak.Select(timesFor(len(curve)), curve, peak.Options{})
			Expect(d.Kind).To(Equal(peak.GlobalMax))
			Expect(d.Index).To(Equal(len(curve) - 1))
			Expect(d.LPF).To(Equal(10.0))
		})
	})

	Context("with an early spike below the peak floor", func() {
		// The spike at 50 sheds load immediately but sits well under
		// 60% of the late maximum, so it is not a capacity point.
		curve := series(0, 10, 50, 10, 5, 8, 15, 25, 40, 55, 70, 85, 100)

		It("skips the spike and reports the global maximum", func() {
			d := peak.Select(timesFor(len(curve)), curve, peak.Options{})
			Expect(d.Kind).To(Equal(peak.GlobalMax))
			Expect(d.Index).To(Equal(len(curve) - 1))
			Expect(d.LPF).To(Equal(100.0))
		})
	})

	Context("with a flat curve", func() {
		It("reports none at the last frame", func() {
			curve := series(0, 0, 0, 0, 0)
			d := peak.Select(timesFor(len(curve)), curve, peak.Options{})
			Expect(d.Kind).To(Equal(peak.PeakNone))
			Expect(d.Index).To(Equal(len(curve) - 1))
		})
	})

	Context("with short histories", func() {
		It("handles the empty series", func() {
			d := peak.Select(nil, nil, peak.Options{})
			Expect(d.Kind).To(Equal(peak.PeakNone))
			Expect(d.Index).To(Equal(-1))
		})

		It("resolves two increments to the last frame", func() {
			d := peak.Select([]float64{0.1, 0.2}, series(1, 2), peak.Options{})
			Expect(d.Kind).To(Equal(peak.PeakNone))
			Expect(d.Index).To(Equal(1))
			Expect(d.LPF).To(Equal(2.0))
			Expect(d.Time).To(Equal(0.2))
		})
	})

	Context("without frame times", func() {
		It("falls back to the index as the time", func() {
			curve := series(0, 1, 2, 3, 4)
			d := peak.Select(nil, curve, peak.Options{})
			Expect(d.Time).To(Equal(float64(d.Index)))
		})
	})
})

var _ = Describe("NearestFrame", func() {
	It("maps a time onto the closest frame", func() {
		times := []float64{0, 0.1, 0.2, 0.5}
		Expect(peak.NearestFrame(times, 0.22)).To(Equal(2))
		Expect(peak.NearestFrame(times, 10)).To(Equal(3))
		Expect(peak.NearestFrame(times, -1)).To(Equal(0))
	})

	It("reports -1 without frames", func() {
		Expect(peak.NearestFrame(nil, 0.5)).To(Equal(-1))
	})
})
