package stats_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rsimgroup/rsim/engine"
	"github.com/rsimgroup/rsim/stats"
)

var _ = Describe("Report", func() {
	It("satisfies the stall-accounting identity when losses are fully bucketed", func() {
		r := stats.New()
		r.RecordLoss(engine.StallFreeListInt)
		r.RecordLoss(engine.StallFreeListInt)
		r.RecordLoss(engine.StallActiveList)
		Expect(r.CheckStallIdentity(4, 1, 1)).To(Equal(int64(0)))
	})

	It("computes utility as graduated over fetched", func() {
		r := stats.New()
		for i := 0; i < 10; i++ {
			r.RecordFetch()
		}
		for i := 0; i < 8; i++ {
			r.RecordGraduate()
		}
		Expect(r.Utility()).To(BeNumerically("~", 0.8, 1e-9))
	})

	It("measures aggregate-latency buckets opened and closed by ILLTRAP markers", func() {
		r := stats.New()
		r.OpenAggregateBucket(100)
		r.CloseAggregateBucket(150)
		Expect(r.AggregateLatencyBuckets).To(ConsistOf(int64(50)))
	})
})
