package gr_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/nbody"
)

var _ = Describe("Corrector", func() {
	variants := []gr.Variant{gr.Full, gr.SingleSource, gr.Potential}

	Describe("Accelerations", func() {
		It("returns one zero vector for a lone particle", func() {
			for _, v := range variants {
				acc, err := newCorrector(v).Accelerations(nbody.Particles{{Mass: 1, Vel: r3.Vec{X: 1}}})
				Expect(err).NotTo(HaveOccurred())
				Expect(acc).To(Equal([]r3.Vec{{}}))
			}
		})

		It("does not mutate its input", func() {
			ps := innerPlanets()
			before := ps.Clone()
			for _, v := range variants {
				_, err := newCorrector(v).Accelerations(ps)
				Expect(err).NotTo(HaveOccurred())
				Expect(ps).To(Equal(before))
			}
		})

		It("matches the analytic test-particle field", func() {
			ps := nbody.Particles{
				{Mass: 1},
				{Pos: r3.Vec{X: 0.5}, Vel: r3.Vec{X: 0.3, Y: 1.2}},
			}
			acc, err := newCorrector(gr.SingleSource).Accelerations(ps)
			Expect(err).NotTo(HaveOccurred())

			c2 := gr.DefaultC * gr.DefaultC
			r, v2, rv := 0.5, 0.3*0.3+1.2*1.2, 0.5*0.3
			pre := 1 / (c2 * r * r * r)
			wantX := pre * ((4/r-v2)*r + 4*rv*0.3)
			wantY := pre * 4 * rv * 1.2

			Expect(acc[1].X).To(BeNumerically("~", wantX, 1e-14*math.Abs(wantX)))
			Expect(acc[1].Y).To(BeNumerically("~", wantY, 1e-14*math.Abs(wantY)))
			Expect(acc[0]).To(Equal(r3.Vec{}), "a massless particle does not pull on the source")
		})

		It("conserves momentum for the single-source variants", func() {
			ps := innerPlanets()
			for _, v := range []gr.Variant{gr.SingleSource, gr.Potential} {
				acc, err := newCorrector(v).Accelerations(ps)
				Expect(err).NotTo(HaveOccurred())

				var p r3.Vec
				for i, a := range acc {
					p = r3.Add(p, r3.Scale(ps[i].Mass, a))
				}
				Expect(r3.Norm(p)).To(BeNumerically("<", 1e-12*r3.Norm(acc[1])*ps[1].Mass+1e-30))
			}
		})

		It("reduces Full to SingleSource in the test-particle limit", func() {
			ps := mercury()
			full, err := newCorrector(gr.Full).Accelerations(ps)
			Expect(err).NotTo(HaveOccurred())
			single, err := newCorrector(gr.SingleSource).Accelerations(ps)
			Expect(err).NotTo(HaveOccurred())

			Expect(r3.Norm(r3.Sub(full[1], single[1])) / r3.Norm(single[1])).To(BeNumerically("<", 1e-5))
		})

		It("points the potential correction towards the source", func() {
			ps := mercury()
			acc, err := newCorrector(gr.Potential).Accelerations(ps)
			Expect(err).NotTo(HaveOccurred())
			Expect(r3.Dot(acc[1], r3.Sub(ps[1].Pos, ps[0].Pos))).To(BeNumerically("<", 0))
		})
	})

	Describe("source designation", func() {
		It("follows the explicit marker when particles are reordered", func() {
			ps := innerPlanets()
			unmarked, err := newCorrector(gr.SingleSource).Accelerations(ps)
			Expect(err).NotTo(HaveOccurred())

			reordered := nbody.Particles{ps[1], ps[2], ps[3], ps[0]}
			reordered[3].Role = nbody.RoleSource
			for _, v := range []gr.Variant{gr.SingleSource, gr.Potential} {
				c := newCorrector(v)
				want, err := c.Accelerations(ps)
				Expect(err).NotTo(HaveOccurred())

				got, err := c.Accelerations(reordered)
				Expect(err).NotTo(HaveOccurred())
				Expect([]r3.Vec{got[3], got[0], got[1], got[2]}).To(Equal(want))

				idx, err := c.Source(reordered)
				Expect(err).NotTo(HaveOccurred())
				Expect(idx).To(Equal(3))
			}

			reordered[3].Role = nbody.RoleNone
			indexOnly, err := newCorrector(gr.SingleSource).Accelerations(reordered)
			Expect(err).NotTo(HaveOccurred())
			Expect(indexOnly[0]).NotTo(Equal(unmarked[1]), "without a marker index 0 is the source")
		})

		It("honours the configured index", func() {
			ps := nbody.Particles{{Pos: r3.Vec{X: 1}}, {Mass: 1}}
			c, err := gr.New(gr.Config{Variant: gr.SingleSource, G: 1, C: gr.DefaultC, SourceIndex: 1})
			Expect(err).NotTo(HaveOccurred())

			acc, err := c.Accelerations(ps)
			Expect(err).NotTo(HaveOccurred())
			Expect(acc[0].X).To(BeNumerically(">", 0))
		})

		DescribeTable("rejects degenerate snapshots",
			func(v gr.Variant, mutate func(nbody.Particles) nbody.Particles) {
				ps := mutate(mercury())
				_, err := newCorrector(v).Accelerations(ps)
				Expect(err).To(MatchError(gr.ErrInvalidState))
			},
			Entry("zero-mass source, single", gr.SingleSource, func(ps nbody.Particles) nbody.Particles {
				ps[0].Mass = 0
				return ps
			}),
			Entry("zero-mass marked source, potential", gr.Potential, func(ps nbody.Particles) nbody.Particles {
				ps[1].Role = nbody.RoleSource
				ps[1].Mass = 0
				return ps
			}),
			Entry("two markers", gr.SingleSource, func(ps nbody.Particles) nbody.Particles {
				ps[0].Role, ps[1].Role = nbody.RoleSource, nbody.RoleSource
				return ps
			}),
			Entry("empty snapshot", gr.Potential, func(ps nbody.Particles) nbody.Particles {
				return ps[:0:0]
			}),
			Entry("negative mass", gr.Full, func(ps nbody.Particles) nbody.Particles {
				ps[1].Mass = -1e-7
				return ps
			}),
			Entry("coincident with source, single", gr.SingleSource, func(ps nbody.Particles) nbody.Particles {
				ps[1].Pos = ps[0].Pos
				return ps
			}),
			Entry("coincident with source, potential", gr.Potential, func(ps nbody.Particles) nbody.Particles {
				ps[1].Pos = ps[0].Pos
				return ps
			}),
			Entry("coincident pair, full", gr.Full, func(ps nbody.Particles) nbody.Particles {
				ps[1].Pos = ps[0].Pos
				return ps
			}),
		)

		It("rejects a source index beyond the snapshot", func() {
			c, err := gr.New(gr.Config{Variant: gr.SingleSource, G: 1, C: gr.DefaultC, SourceIndex: 5})
			Expect(err).NotTo(HaveOccurred())
			_, err = c.Accelerations(mercury())
			Expect(err).To(MatchError(gr.ErrInvalidState))
		})
	})

	Describe("Hamiltonian", func() {
		It("is unsupported for the potential variant", func() {
			c := newCorrector(gr.Potential)
			Expect(c.Conserves()).To(BeFalse())
			_, err := c.Hamiltonian(mercury())
			Expect(err).To(MatchError(gr.ErrUnsupportedOperation))
		})

		It("agrees between Full and SingleSource for a test particle", func() {
			ps := mercury()
			hf, err := newCorrector(gr.Full).Hamiltonian(ps)
			Expect(err).NotTo(HaveOccurred())
			hs, err := newCorrector(gr.SingleSource).Hamiltonian(ps)
			Expect(err).NotTo(HaveOccurred())

			newton, err := nbody.NewtonianEnergy(1, ps)
			Expect(err).NotTo(HaveOccurred())
			Expect(hs).NotTo(Equal(newton))
			Expect((hf - newton) / (hs - newton)).To(BeNumerically("~", 1, 1e-5))
		})

		It("reports degenerate snapshots", func() {
			ps := mercury()
			ps[1].Pos = ps[0].Pos
			for _, v := range []gr.Variant{gr.Full, gr.SingleSource} {
				_, err := newCorrector(v).Hamiltonian(ps)
				Expect(err).To(MatchError(gr.ErrInvalidState))
			}
		})

		It("uses the pair gravitational parameter for a massive companion", func() {
			ps := comparable(0.5)
			h, err := newCorrector(gr.SingleSource).Hamiltonian(ps)
			Expect(err).NotTo(HaveOccurred())
			newton, err := nbody.NewtonianEnergy(1, ps)
			Expect(err).NotTo(HaveOccurred())

			v := r3.Sub(ps[1].Vel, ps[0].Vel)
			d := r3.Norm(r3.Sub(ps[1].Pos, ps[0].Pos))
			mu, mr, v2 := 1.5, 0.5/1.5, r3.Norm2(v)
			want := mr * (0.375*v2*v2 + 1.5*mu*v2/d + 0.5*mu*mu/(d*d)) / (gr.DefaultC * gr.DefaultC)
			Expect(h - newton).To(BeNumerically("~", want, 1e-6*want))
		})
	})

	Describe("DiagnosticEnergy", func() {
		It("is the Hamiltonian for the conserving variants", func() {
			ps := innerPlanets()
			for _, v := range []gr.Variant{gr.Full, gr.SingleSource} {
				c := newCorrector(v)
				h, err := c.Hamiltonian(ps)
				Expect(err).NotTo(HaveOccurred())
				Expect(c.DiagnosticEnergy(ps)).To(Equal(h))
			}
		})

		It("adds the pair potentials for the potential variant", func() {
			ps := comparable(0.5)
			e, err := newCorrector(gr.Potential).DiagnosticEnergy(ps)
			Expect(err).NotTo(HaveOccurred())
			newton, err := nbody.NewtonianEnergy(1, ps)
			Expect(err).NotTo(HaveOccurred())

			r2 := r3.Norm2(r3.Sub(ps[1].Pos, ps[0].Pos))
			want := -(0.5 / 1.5) * 3 * 1.5 * 1.5 / (gr.DefaultC * gr.DefaultC * r2)
			Expect(e - newton).To(BeNumerically("~", want, 1e-6*math.Abs(want)))
		})

		It("reports degenerate snapshots", func() {
			ps := mercury()
			ps[1].Pos = ps[0].Pos
			_, err := newCorrector(gr.Potential).DiagnosticEnergy(ps)
			Expect(err).To(MatchError(gr.ErrInvalidState))
		})
	})
})
