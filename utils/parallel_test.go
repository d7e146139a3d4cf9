package utils

import (
	"context"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
)

func TestGroupWorkParallel(t *testing.T) {
	// Sizes below and above the parallel factor must both cover every index
	// exactly once.
	for _, size := range []int{1, 3, ParallelFactor, 5*ParallelFactor + 3} {
		counts := make([]*atomic.Int32, size)
		for i := range counts {
			counts[i] = atomic.NewInt32(0)
		}
		err := GroupWorkParallel(context.Background(), size,
			func(groupSize int) {},
			func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
				return func(memberNum, workNum int) {
					counts[workNum].Inc()
				}, nil
			})
		test.That(t, err, test.ShouldBeNil)
		for _, count := range counts {
			test.That(t, count.Load(), test.ShouldEqual, 1)
		}
	}

	test.That(t, GroupWorkParallel(context.Background(), 0,
		func(groupSize int) {},
		func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
			return nil, nil
		}), test.ShouldBeNil)
}
