package gr_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/units"
)

var _ = Describe("Config", func() {
	DescribeTable("rejects unusable constants",
		func(cfg gr.Config) {
			c, err := gr.New(cfg)
			Expect(err).To(MatchError(gr.ErrInvalidConfiguration))
			Expect(c).To(BeNil())
		},
		Entry("zero c", gr.Config{Variant: gr.SingleSource, G: 1, C: 0}),
		Entry("negative c", gr.Config{Variant: gr.Full, G: 1, C: -1}),
		Entry("NaN c", gr.Config{Variant: gr.Potential, G: 1, C: math.NaN()}),
		Entry("zero G", gr.Config{Variant: gr.SingleSource, G: 0, C: 1}),
		Entry("negative G", gr.Config{Variant: gr.SingleSource, G: -1, C: 1}),
		Entry("negative source index", gr.Config{Variant: gr.SingleSource, G: 1, C: 1, SourceIndex: -1}),
		Entry("unknown variant", gr.Config{Variant: gr.Variant(7), G: 1, C: 1}),
		Entry("default c with another G", gr.Config{Variant: gr.SingleSource, G: 4 * math.Pi * math.Pi, C: gr.DefaultC}),
		Entry("rounded default c with another G", gr.Config{Variant: gr.SingleSource, G: 4 * math.Pi * math.Pi, C: 10065.32}),
		Entry("unknown units", gr.Config{Variant: gr.SingleSource, G: 1, Units: "au,msun,fortnight"}),
		Entry("units outside the whitelist", gr.Config{Variant: gr.SingleSource, G: 1, Units: "pc,msun,kyr"}),
		Entry("G inconsistent with units", gr.Config{Variant: gr.SingleSource, G: 1, Units: "au,msun,day"}),
		Entry("c inconsistent with units", gr.Config{Variant: gr.SingleSource, G: 1, C: 100, Units: "au,msun,yr2pi"}),
	)

	It("accepts the default constants", func() {
		cfg := gr.DefaultConfig()
		c, err := gr.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Variant()).To(Equal(gr.SingleSource))
		Expect(c.Name()).To(Equal("gr"))
		Expect(c.C()).To(Equal(gr.DefaultC))
		Expect(c.G()).To(Equal(1.0))
	})

	It("derives c from a recognised unit system", func() {
		consts := units.MustDerive(units.System{Length: "au", Mass: "msun", Time: "day"})
		c, err := gr.New(gr.Config{Variant: gr.Full, G: consts.G, Units: "AU,Msun,day"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.C()).To(BeNumerically("~", 173.1446, 1e-3))
	})

	It("accepts an explicit c that agrees with the units", func() {
		c, err := gr.New(gr.Config{Variant: gr.SingleSource, G: 1, C: 10065.13, Units: "au,msun,yr2pi"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.C()).To(Equal(10065.13))
	})

	It("accepts a custom c for a custom G", func() {
		c, err := gr.New(gr.Config{Variant: gr.Potential, G: 39.47, C: 63239.7})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.VelocityDependent()).To(BeFalse())
		Expect(c.Conserves()).To(BeFalse())
	})

	It("consults a caller supplied whitelist", func() {
		kms := units.System{Length: "km", Mass: "kg", Time: "s"}
		reg, err := units.NewRegistry(kms)
		Expect(err).NotTo(HaveOccurred())

		G := units.MustDerive(kms).G
		_, err = gr.New(gr.Config{Variant: gr.SingleSource, G: G, Units: "km,kg,s"})
		Expect(err).To(MatchError(gr.ErrInvalidConfiguration))

		c, err := gr.New(gr.Config{Variant: gr.SingleSource, G: G, Units: "km,kg,s", Registry: reg})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.C()).To(BeNumerically("~", 299792.458, 1e-6))
	})
})

var _ = Describe("Variant", func() {
	It("round-trips the effect names", func() {
		for _, v := range gr.Variants() {
			got, err := gr.ParseVariant(v.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(v))
		}
	})

	It("rejects unknown names", func() {
		_, err := gr.ParseVariant("gr_quadrupole")
		Expect(err).To(MatchError(gr.ErrInvalidConfiguration))
	})
})
