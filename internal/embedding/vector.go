// internal/embedding/vector.go
package embedding

import "math"

// Vector is one embedding. Model providers fill Dense. The hashing provider
// fills Sparse, keyed by 64-bit feature hashes, so texts without shared
// features have no dimension in common.
type Vector struct {
	Dense  []float32
	Sparse map[uint64]float32
}

// DenseVector wraps a model embedding.
func DenseVector(v []float32) Vector {
	return Vector{Dense: v}
}

func (v Vector) IsSparse() bool {
	return v.Sparse != nil
}

// IsZero reports whether v has no non-zero component.
func (v Vector) IsZero() bool {
	return v.norm() == 0
}

func (v Vector) norm() float64 {
	var sum float64
	if v.IsSparse() {
		for _, x := range v.Sparse {
			sum += float64(x) * float64(x)
		}
	} else {
		for _, x := range v.Dense {
			sum += float64(x) * float64(x)
		}
	}
	return math.Sqrt(sum)
}

// dot returns the inner product and whether a and b live in the same space.
func dot(a, b Vector) (float64, bool) {
	switch {
	case a.IsSparse() && b.IsSparse():
		small, large := a.Sparse, b.Sparse
		if len(large) < len(small) {
			small, large = large, small
		}
		var sum float64
		for k, x := range small {
			if y, ok := large[k]; ok {
				sum += float64(x) * float64(y)
			}
		}
		return sum, true
	case !a.IsSparse() && !b.IsSparse():
		if len(a.Dense) != len(b.Dense) {
			return 0, false
		}
		var sum float64
		for i := range a.Dense {
			sum += float64(a.Dense[i]) * float64(b.Dense[i])
		}
		return sum, true
	default:
		return 0, false
	}
}
