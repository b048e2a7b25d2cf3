package tracking

import (
	"time"

	"github.com/sarchlab/selftime/metric"
	"github.com/sarchlab/selftime/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func at(n int) time.Time {
	return time.Unix(0, 0).Add(ms(n))
}

func ids(nodes []*metric.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}

	return out
}

var _ = Describe("Tracker", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		t          *Tracker
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		t = NewTracker(timeTeller)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record a single operation", func() {
		timeTeller.EXPECT().CurrentTime().Return(at(10))
		t.Begin("a")

		Expect(t.IsInProgress("a")).To(BeTrue())
		Expect(t.InProgress()).To(Equal([]string{"a"}))

		timeTeller.EXPECT().CurrentTime().Return(at(50))
		t.End("a")

		a, ok := t.Node("a")
		Expect(ok).To(BeTrue())
		Expect(a.Elapsed()).To(Equal(ms(40)))
		Expect(a.SelfTime()).To(Equal(ms(40)))
		Expect(t.IsInProgress("a")).To(BeFalse())
		Expect(t.Depth()).To(Equal(0))
		Expect(t.OperationCount()).To(Equal(1))
	})

	It("should link a nested operation to the one in progress", func() {
		timeTeller.EXPECT().CurrentTime().Return(at(0))
		t.Begin("a")
		timeTeller.EXPECT().CurrentTime().Return(at(20))
		t.Begin("b")

		Expect(t.InProgress()).To(Equal([]string{"a", "b"}))

		timeTeller.EXPECT().CurrentTime().Return(at(100))
		t.End("b")
		timeTeller.EXPECT().CurrentTime().Return(at(100))
		t.End("a")

		a, _ := t.Node("a")
		_, ok := a.Dependency("b")
		Expect(ok).To(BeTrue())

		parent, ok := t.Parent("b")
		Expect(ok).To(BeTrue())
		Expect(parent).To(Equal("a"))

		_, ok = t.Parent("a")
		Expect(ok).To(BeFalse())
		Expect(ids(t.Roots())).To(Equal([]string{"a"}))
	})

	It("should ignore ending an operation that is not in progress", func() {
		t.End("ghost")

		Expect(t.OperationCount()).To(Equal(0))
	})

	It("should remove the named operation even if it is not on top", func() {
		timeTeller.EXPECT().CurrentTime().Return(at(0))
		t.Begin("a")
		timeTeller.EXPECT().CurrentTime().Return(at(10))
		t.Begin("b")

		timeTeller.EXPECT().CurrentTime().Return(at(30))
		t.End("a")

		Expect(t.InProgress()).To(Equal([]string{"b"}))

		timeTeller.EXPECT().CurrentTime().Return(at(35))
		t.End("b")

		a, _ := t.Node("a")
		b, _ := t.Node("b")
		Expect(a.Elapsed()).To(Equal(ms(30)))
		Expect(b.Elapsed()).To(Equal(ms(25)))
	})

	It("should keep the report position of a re-entered operation", func() {
		timeTeller.EXPECT().CurrentTime().Return(at(0))
		t.Begin("a")
		timeTeller.EXPECT().CurrentTime().Return(at(5))
		t.End("a")
		timeTeller.EXPECT().CurrentTime().Return(at(5))
		t.Begin("b")
		timeTeller.EXPECT().CurrentTime().Return(at(6))
		t.End("b")
		timeTeller.EXPECT().CurrentTime().Return(at(10))
		t.Begin("a")
		timeTeller.EXPECT().CurrentTime().Return(at(12))
		t.End("a")

		Expect(ids(t.Metrics())).To(Equal([]string{"a", "b"}))
		Expect(t.OperationCount()).To(Equal(2))

		a, _ := t.Node("a")
		Expect(a.Elapsed()).To(Equal(ms(2)))
	})

	It("should not link operations in a cycle when one is re-entered", func() {
		timeTeller.EXPECT().CurrentTime().Return(at(0)).Times(4)
		t.Begin("a")
		t.Begin("b")
		t.End("a")
		t.Begin("a")

		parentOfA, _ := t.Parent("a")
		Expect(parentOfA).To(Equal("b"))
		_, bHasParent := t.Parent("b")
		Expect(bHasParent).To(BeFalse())
		Expect(ids(t.Roots())).To(Equal([]string{"b"}))
	})

	It("should not make an operation its own dependency", func() {
		timeTeller.EXPECT().CurrentTime().Return(at(0))
		t.Begin("a")
		timeTeller.EXPECT().CurrentTime().Return(at(3))
		t.Begin("a")

		_, hasParent := t.Parent("a")
		Expect(hasParent).To(BeFalse())

		a, _ := t.Node("a")
		Expect(a.NumDependencies()).To(Equal(0))
		Expect(t.InProgress()).To(Equal([]string{"a", "a"}))
	})

	Context("with hooks", func() {
		var hook *MockHook

		BeforeEach(func() {
			hook = NewMockHook(mockCtrl)
			t.AcceptHook(hook)
		})

		It("should not accept the same hook twice", func() {
			Expect(func() { t.AcceptHook(hook) }).To(Panic())
			Expect(t.NumHooks()).To(Equal(1))
		})

		It("should not let callers change the attached hooks", func() {
			hooks := t.Hooks()
			hooks[0] = nil

			Expect(t.Hooks()).To(Equal([]Hook{hook}))
		})

		It("should invoke hooks when operations begin and end", func() {
			var ctxs []HookCtx
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx HookCtx) { ctxs = append(ctxs, ctx) }).
				Times(4)

			timeTeller.EXPECT().CurrentTime().Return(at(0))
			t.Begin("a")
			timeTeller.EXPECT().CurrentTime().Return(at(20))
			t.Begin("b")
			timeTeller.EXPECT().CurrentTime().Return(at(100))
			t.End("b")
			timeTeller.EXPECT().CurrentTime().Return(at(100))
			t.End("a")

			Expect(ctxs).To(HaveLen(4))

			Expect(ctxs[0].Pos).To(Equal(HookPosOperationBegin))
			Expect(ctxs[0].Node.ID()).To(Equal("a"))
			Expect(ctxs[0].ParentID).To(BeEmpty())
			Expect(ctxs[0].Depth).To(Equal(0))

			Expect(ctxs[1].Pos).To(Equal(HookPosOperationBegin))
			Expect(ctxs[1].ParentID).To(Equal("a"))
			Expect(ctxs[1].Depth).To(Equal(1))
			Expect(ctxs[1].Now).To(Equal(at(20)))

			Expect(ctxs[2].Pos).To(Equal(HookPosOperationEnd))
			Expect(ctxs[2].Node.ID()).To(Equal("b"))
			Expect(ctxs[2].Node.Elapsed()).To(Equal(ms(80)))
			Expect(ctxs[2].Depth).To(Equal(1))

			Expect(ctxs[3].Pos).To(Equal(HookPosOperationEnd))
			Expect(ctxs[3].Node.SelfTime()).To(Equal(ms(20)))
			Expect(ctxs[3].Domain).To(BeIdenticalTo(t))
		})
	})
})

var _ = Describe("Tracker scenarios", func() {
	var (
		clock *timing.ManualClock
		t     *Tracker
	)

	BeforeEach(func() {
		clock = timing.NewManualClock()
		t = NewTracker(clock)
	})

	It("should split a parent and a nested child", func() {
		t.Begin("a")
		clock.Advance(ms(20))
		t.Begin("b")
		clock.Advance(ms(80))
		t.End("b")
		t.End("a")

		a, _ := t.Node("a")
		b, _ := t.Node("b")
		Expect(b.ElapsedMillis()).To(Equal(int64(80)))
		Expect(b.SelfTimeMillis()).To(Equal(int64(80)))
		Expect(a.ElapsedMillis()).To(Equal(int64(100)))
		Expect(a.SelfTimeMillis()).To(Equal(int64(20)))
	})

	It("should keep sibling roots apart", func() {
		for i, id := range []string{"a", "b", "c"} {
			t.Begin(id)
			clock.Advance(ms(40 + 10*i))
			t.End(id)
		}

		Expect(t.OperationCount()).To(Equal(3))
		Expect(ids(t.Roots())).To(Equal([]string{"a", "b", "c"}))

		for _, n := range t.Metrics() {
			Expect(n.SelfTime()).To(Equal(n.Elapsed()))
		}
	})

	It("should handle a deep chain", func() {
		t.Begin("a")
		clock.Advance(ms(20))
		t.Begin("b")
		clock.Advance(ms(30))
		t.Begin("c")
		clock.Advance(ms(40))
		t.Begin("d")
		clock.Advance(ms(10))
		t.End("d")
		t.End("c")
		t.End("b")
		t.End("a")

		expected := map[string][2]int64{
			"a": {100, 20},
			"b": {80, 30},
			"c": {50, 40},
			"d": {10, 10},
		}

		for _, n := range t.Metrics() {
			Expect(n.ElapsedMillis()).To(Equal(expected[n.ID()][0]), n.ID())
			Expect(n.SelfTimeMillis()).To(Equal(expected[n.ID()][1]), n.ID())
		}

		Expect(ids(t.Metrics())).To(Equal([]string{"a", "b", "c", "d"}))
	})

	It("should keep nested work within its container", func() {
		t.Begin("root")
		clock.Advance(ms(5))
		for _, id := range []string{"x", "y"} {
			t.Begin(id)
			clock.Advance(ms(7))
			t.Begin(id + ".inner")
			clock.Advance(ms(3))
			t.End(id + ".inner")
			t.End(id)
		}
		t.End("root")

		for _, n := range t.Metrics() {
			var sum time.Duration
			for _, d := range n.Dependencies() {
				sum += d.Elapsed()
			}

			Expect(n.Elapsed()).To(BeNumerically(">=", sum), n.ID())
			Expect(n.SelfTime()).To(BeNumerically(">=", 0), n.ID())
		}

		Expect(t.OperationCount()).To(Equal(5))
	})

	It("should report in begin order regardless of completion order", func() {
		t.Begin("a")
		t.Begin("b")
		t.Begin("c")
		t.End("c")
		t.End("b")
		t.End("a")
		t.Begin("d")
		t.End("d")

		Expect(ids(t.Metrics())).To(Equal([]string{"a", "b", "c", "d"}))
	})

	It("should return the same metrics when nothing happened in between", func() {
		t.Begin("a")
		clock.Advance(ms(3))
		t.End("a")

		first := t.Metrics()
		second := t.Metrics()

		Expect(second).To(Equal(first))
	})

	It("should return metrics the caller owns", func() {
		t.Begin("a")
		t.End("a")

		first := t.Metrics()
		first[0] = nil

		Expect(t.Metrics()[0]).NotTo(BeNil())
	})
})
