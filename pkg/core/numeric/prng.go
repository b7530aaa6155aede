package numeric

// DefaultSeed seeds the generator used for bootstrap sampling.
const DefaultSeed uint32 = 42

// PRNG is a 32-bit linear congruential generator. It exists so bootstrap
// sampling is reproducible across runs and platforms; it is not safe for
// concurrent use, so every fit owns its own instance.
type PRNG struct {
	state uint32
}

// NewPRNG returns a generator starting from seed.
func NewPRNG(seed uint32) *PRNG {
	return &PRNG{state: seed}
}

// Next advances the generator and returns the raw 32-bit state.
func (r *PRNG) Next() uint32 {
	// Numerical Recipes constants; uint32 overflow gives the mod 2^32.
	r.state = 1664525*r.state + 1013904223
	return r.state
}

// Float64 returns a value in [0, 1).
func (r *PRNG) Float64() float64 {
	return float64(r.Next()) / 4294967296.0
}

// Intn returns a value in [0, n). n <= 0 yields 0.
func (r *PRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(r.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Sample returns k distinct indices from [0, n) using a partial Fisher-Yates
// shuffle. k is clamped to n.
func (r *PRNG) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
