package gr_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pnsim/internal/dynamo"
	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/integrators"
	"github.com/san-kum/pnsim/internal/metrics"
	"github.com/san-kum/pnsim/internal/nbody"
	"github.com/san-kum/pnsim/internal/units"
)

// newtonian evaluates the plain Newtonian energy of a system that may
// carry a conserving effect.
type newtonian struct{ sys *nbody.System }

func (n newtonian) Energy(x dynamo.State) (float64, error) {
	ps, err := n.sys.Unpack(x)
	if err != nil {
		return 0, err
	}
	return nbody.NewtonianEnergy(n.sys.G, ps)
}

func integrate(sys *nbody.System, integ dynamo.Integrator, period float64, stepsPerOrbit, orbits, sampleEvery int, ms ...dynamo.Metric) *dynamo.Result {
	sim := dynamo.New(sys, integ)
	for _, m := range ms {
		sim.AddMetric(m)
	}
	cfg := dynamo.DefaultConfig()
	cfg.Dt = period / float64(stepsPerOrbit)
	cfg.Duration = float64(orbits) * period
	cfg.SampleEvery = sampleEvery

	res, err := sim.Run(context.Background(), sys.InitialState(), cfg)
	Expect(err).NotTo(HaveOccurred())
	Expect(res.StepsTaken).To(Equal(stepsPerOrbit * orbits))
	return res
}

var _ = Describe("Mercury", func() {
	const (
		expected      = 42.98
		stepsPerOrbit = 2000
		orbits        = 40
	)
	var scale float64

	BeforeEach(func() {
		sec, err := units.Default.TimeSeconds()
		Expect(err).NotTo(HaveOccurred())
		scale = metrics.ArcsecPerCentury(sec)
	})

	precession := func(attach func(*nbody.System)) float64 {
		sys, err := nbody.NewSystem(1, mercury(), nil)
		Expect(err).NotTo(HaveOccurred())
		attach(sys)

		var integ dynamo.Integrator = integrators.NewRK4()
		if sys.HasOperators() {
			integ = nbody.NewOperatorStepper(sys, integ)
		}
		m := metrics.NewPrecession(sys, 1, 0, scale)
		integrate(sys, integ, mercuryPeriod(), stepsPerOrbit, orbits, 1000, m)
		Expect(m.Err()).NotTo(HaveOccurred())
		return m.Value()
	}

	DescribeTable("precesses at the 1PN rate",
		func(v gr.Variant) {
			rate := precession(func(sys *nbody.System) {
				Expect(sys.AddForce(newCorrector(v))).To(Succeed())
			})
			Expect(rate).To(BeNumerically("~", expected, 2))
		},
		Entry("full", gr.Full),
		Entry("single source", gr.SingleSource),
		Entry("potential", gr.Potential),
	)

	It("precesses at the 1PN rate when applied as an operator", func() {
		rate := precession(func(sys *nbody.System) {
			Expect(sys.AddOperator(newCorrector(gr.SingleSource), nbody.OperatorOptions{Order: 2})).To(Succeed())
		})
		Expect(rate).To(BeNumerically("~", expected, 2))
	})

	It("does not precess without the correction", func() {
		rate := precession(func(*nbody.System) {})
		Expect(math.Abs(rate)).To(BeNumerically("<", 0.5))
	})

	DescribeTable("conserves the 1PN Hamiltonian",
		func(v gr.Variant) {
			sys, err := nbody.NewSystem(1, mercury(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(sys.AddForce(newCorrector(v))).To(Succeed())

			pn := metrics.NewEnergyDrift(sys)
			plain := metrics.NewEnergyDrift(newtonian{sys})
			res := integrate(sys, integrators.NewRK4(), mercuryPeriod(), 4000, 10, 4000, pn, plain)

			Expect(pn.Err()).NotTo(HaveOccurred())
			Expect(pn.Value()).To(BeNumerically("<", 1e-9))
			Expect(plain.Value()).To(BeNumerically(">", 1e-8), "Newtonian energy alone is not conserved")
			Expect(res.EnergyDrift).To(BeNumerically("<", 1e-9))
		},
		Entry("full", gr.Full),
		Entry("single source", gr.SingleSource),
	)

	It("keeps leapfrog free of secular energy drift under the potential", func() {
		sys, err := nbody.NewSystem(1, mercury(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.AddForce(newCorrector(gr.Potential))).To(Succeed())

		const perOrbit, total, window = 400, 200, 20
		res := integrate(sys, integrators.NewLeapfrog(), mercuryPeriod(), perOrbit, total, 1)

		e0, err := sys.Energy(res.States[0])
		Expect(err).NotTo(HaveOccurred())

		maxDrift := func(states []dynamo.State) float64 {
			worst := 0.0
			for _, x := range states {
				e, err := sys.Energy(x)
				Expect(err).NotTo(HaveOccurred())
				worst = math.Max(worst, math.Abs(e-e0)/math.Abs(e0))
			}
			return worst
		}
		n := len(res.States)
		early := maxDrift(res.States[:window*perOrbit])
		late := maxDrift(res.States[n-window*perOrbit:])

		Expect(early).To(BeNumerically(">", 0))
		Expect(late).To(BeNumerically("<", 2*early))
	})
})

// conservation integrates with RK4 and returns the largest relative drift
// of the system energy and of the plain Newtonian energy.
func conservation(sys *nbody.System, period float64, stepsPerOrbit, orbits int) (pn, plain float64) {
	h := metrics.NewEnergyDrift(sys)
	n := metrics.NewEnergyDrift(newtonian{sys})
	integrate(sys, integrators.NewRK4(), period, stepsPerOrbit, orbits, stepsPerOrbit, h, n)
	Expect(h.Err()).NotTo(HaveOccurred())
	Expect(n.Err()).NotTo(HaveOccurred())
	return h.Value(), n.Value()
}

var _ = Describe("Comparable masses", func() {
	const c = 1000

	It("conserves the single-source Hamiltonian for a massive companion", func() {
		sys, err := nbody.NewSystem(1, comparable(0.5), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.AddForce(newCorrectorAt(gr.SingleSource, c))).To(Succeed())

		pn, plain := conservation(sys, comparablePeriod(0.5), 4000, 4)
		Expect(pn).To(BeNumerically("<", 1e-8))
		Expect(plain).To(BeNumerically(">", 1e-6))
	})

	It("conserves the diagnostic energy under the potential", func() {
		sys, err := nbody.NewSystem(1, comparable(0.5), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.AddForce(newCorrectorAt(gr.Potential, c))).To(Succeed())

		pn, plain := conservation(sys, comparablePeriod(0.5), 4000, 4)
		Expect(pn).To(BeNumerically("<", 1e-9))
		Expect(plain).To(BeNumerically(">", 1e-6))
	})

	It("conserves the Full Hamiltonian with three massive bodies", func() {
		sys, err := nbody.NewSystem(1, twoPlanets(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.AddForce(newCorrectorAt(gr.Full, 100))).To(Succeed())

		pn, plain := conservation(sys, 2*math.Pi, 1000, 3)
		Expect(pn).To(BeNumerically("<", 1e-6))
		Expect(plain).To(BeNumerically(">", 1e-5))
		Expect(pn).To(BeNumerically("<", plain/100))
	})
})
