package utils

import (
	"math"
	"time"

	"golang.org/x/exp/constraints"
)

type Pair[F any, S any] struct {
	First  F
	Second S
}

// Further tuning is needed for performance...
func BackOff(count int) {
	if count > 2000 {
		count = 2000
	}
	time.Sleep(time.Duration((count+1)*100) * time.Microsecond)
}

// An imprecise float approximate comparison. "optional" variance with ... args strategy
func FloatEquals(a float64, b float64, inputVariance ...float64) bool {
	variance := 0.001
	if len(inputVariance) >= 1 {
		variance = inputVariance[0]
	}
	return math.Abs(a-b) < variance
}

func Max[T constraints.Ordered](x, y T) T {
	if x < y {
		return y
	}
	return x
}

func Min[T constraints.Ordered](x, y T) T {
	if y < x {
		return y
	}
	return x
}
