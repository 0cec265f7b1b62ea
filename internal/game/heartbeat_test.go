package game_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"oni-radar.klederson.com/internal/game"
)

var _ = Describe("Heartbeat", func() {
	t := game.DefaultHeartbeatThresholds()

	DescribeTable("bands",
		func(d float64, level game.Level, interval time.Duration, extreme bool) {
			b := t.Heartbeat(d)
			Expect(b.Level).To(Equal(level))
			Expect(b.Interval).To(Equal(interval))
			Expect(b.Extreme).To(Equal(extreme))
		},
		Entry("touching", 0.0, game.LevelNear, game.ExtremeInterval, true),
		Entry("extreme edge", 0.5, game.LevelNear, game.ExtremeInterval, true),
		Entry("near", 5.0, game.LevelNear, game.NearInterval, false),
		Entry("near edge", 10.0, game.LevelNear, game.NearInterval, false),
		Entry("mid", 20.0, game.LevelMid, game.MidInterval, false),
		Entry("far", 40.0, game.LevelFar, game.FarInterval, false),
		Entry("far edge", 50.0, game.LevelFar, game.FarInterval, false),
		Entry("out of range", 50.1, game.LevelNone, time.Duration(0), false),
		Entry("not heard", -1.0, game.LevelNone, time.Duration(0), false),
	)

	DescribeTable("intensity",
		func(d, want float64) {
			Expect(t.Heartbeat(d).Intensity).To(BeNumerically("~", want, 1e-9))
		},
		Entry("extreme is full", 0.2, 1.0),
		Entry("near halfway", 5.0, 0.5),
		Entry("near edge", 10.0, 0.0),
		Entry("mid halfway", 20.0, 0.5),
		Entry("far quarter", 35.0, 0.75),
		Entry("silent", 80.0, 0.0),
	)

	It("never drops below the extreme floor inside the extreme radius", func() {
		wide := game.HeartbeatThresholds{Extreme: 4, Near: 5, Mid: 30, Far: 50}
		b := wide.Heartbeat(4)
		Expect(b.Extreme).To(BeTrue())
		Expect(b.Intensity).To(BeNumerically(">=", 0.9))
	})

	It("describes itself", func() {
		Expect(t.Heartbeat(99).String()).To(Equal("silent"))
		Expect(t.Heartbeat(0.1).String()).To(ContainSubstring("extreme"))
		Expect(game.LevelMid.String()).To(Equal("mid"))
	})
})
