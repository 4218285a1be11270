package credits_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luchovc/agency-portal/internal/credits"
)

func TestCredits(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Credits Suite")
}

var _ = Describe("Calculate", func() {
	Context("interval mode", func() {
		rate := credits.IntervalRate(1, 30, 5) // 5 credits per 90 minutes

		It("pays nothing before the first full window", func() {
			Expect(credits.Calculate(89*60, rate)).To(Equal(int64(0)))
		})

		It("pays one window exactly at the boundary", func() {
			Expect(credits.Calculate(90*60, rate)).To(Equal(int64(5)))
		})

		It("does not pay a partial second window", func() {
			// 179 minutes is one completed window, 180 is two
			Expect(credits.Calculate(179*60, rate)).To(Equal(int64(5)))
			Expect(credits.Calculate(180*60, rate)).To(Equal(int64(10)))
		})

		It("ignores leftover seconds below a full minute", func() {
			Expect(credits.Calculate(90*60+59, rate)).To(Equal(int64(5)))
		})

		It("returns zero for zero or negative time", func() {
			Expect(credits.Calculate(0, rate)).To(Equal(int64(0)))
			Expect(credits.Calculate(-60, rate)).To(Equal(int64(0)))
		})
	})

	Context("per-minute mode", func() {
		rate := credits.Rate{Mode: credits.ModePerMinute, CreditsPerMinute: 0.5}

		It("rounds the continuous product", func() {
			Expect(credits.Calculate(60*60, rate)).To(Equal(int64(30)))
			Expect(credits.Calculate(61*60, rate)).To(Equal(int64(31))) // 30.5 rounds up
		})

		It("counts partial minutes proportionally", func() {
			// 90 seconds = 1.5 minutes * 0.5 = 0.75, rounds to 1
			Expect(credits.Calculate(90, rate)).To(Equal(int64(1)))
		})
	})
})

var _ = Describe("IntervalRate", func() {
	It("combines hours and minutes into one window", func() {
		rate := credits.IntervalRate(2, 15, 10)
		Expect(rate.IntervalMinutes).To(Equal(135))
		Expect(rate.CreditsPerInterval).To(Equal(int64(10)))
	})

	It("clamps a zero window to one minute", func() {
		rate := credits.IntervalRate(0, 0, 3)
		Expect(rate.IntervalMinutes).To(Equal(1))
	})
})

var _ = Describe("Rate validation", func() {
	It("accepts a well-formed interval rate", func() {
		Expect(credits.IntervalRate(1, 0, 5).Validate()).To(Succeed())
	})

	It("rejects an unknown mode", func() {
		Expect(credits.Rate{Mode: "hourly"}.Validate()).ToNot(Succeed())
	})

	It("rejects negative payouts", func() {
		bad := credits.Rate{Mode: credits.ModePerMinute, CreditsPerMinute: -1}
		Expect(bad.Validate()).ToNot(Succeed())
	})
})
