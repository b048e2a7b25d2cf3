package tracing

import (
	"github.com/sarchlab/selftime/timing"
	"github.com/sarchlab/selftime/tracking"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("LogTracer", func() {
	It("should log operations at debug level", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		clock := timing.NewManualClock()
		tracker := tracking.NewTracker(clock)
		CollectTrace(tracker, NewLogTracer(zap.New(core)))

		runNested(tracker, clock)

		Expect(logs.FilterMessage("operation begin").Len()).To(Equal(3))

		ends := logs.FilterMessage("operation end").AllUntimed()
		Expect(ends).To(HaveLen(3))
		Expect(ends[1].ContextMap()).To(HaveKeyWithValue("operation", "a"))
		Expect(ends[1].ContextMap()).To(HaveKeyWithValue("self", ms(20)))
	})

	It("should stay quiet above debug level", func() {
		core, logs := observer.New(zapcore.InfoLevel)
		clock := timing.NewManualClock()
		tracker := tracking.NewTracker(clock)
		CollectTrace(tracker, NewLogTracer(zap.New(core)))

		runNested(tracker, clock)

		Expect(logs.Len()).To(Equal(0))
	})
})
