package wstp

// quantileEstimator implements the P² algorithm (Jain & Chlamtac, 1985,
// "The P² Algorithm for Dynamic Calculation of Quantiles and Histograms
// Without Storing Observations") for O(1)-per-observation, O(1)-read
// streaming quantile tracking — used by metrics.go to track task
// execution latency without retaining every sample.
//
// Not thread-safe; callers synchronize externally (metrics.go keeps one
// latencyDigest per worker, each holding one estimator per tracked
// percentile, and guards them with Metrics' mutex).
type quantileEstimator struct {
	p float64

	q  [5]float64
	n  [5]int
	np [5]float64
	dn [5]float64

	initialized bool
	count       int
	initBuffer  [5]float64
}

// newQuantileEstimator creates an estimator for percentile p, clamped to
// [0, 1].
func newQuantileEstimator(p float64) *quantileEstimator {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &quantileEstimator{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// Update folds a new observation in.
func (e *quantileEstimator) Update(x float64) {
	e.count++

	if e.count <= 5 {
		e.initBuffer[e.count-1] = x
		if e.count == 5 {
			e.initialize()
		}
		return
	}

	var k int
	switch {
	case x < e.q[0]:
		e.q[0] = x
		k = 0
	case x >= e.q[4]:
		e.q[4] = x
		k = 3
	default:
		for k = 0; k < 4; k++ {
			if e.q[k] <= x && x < e.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		e.n[i]++
	}
	for i := 0; i < 5; i++ {
		e.np[i] += e.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := e.np[i] - float64(e.n[i])
		if (d >= 1 && e.n[i+1]-e.n[i] > 1) || (d <= -1 && e.n[i-1]-e.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qPrime := e.parabolic(i, sign)
			if e.q[i-1] < qPrime && qPrime < e.q[i+1] {
				e.q[i] = qPrime
			} else {
				e.q[i] = e.linear(i, sign)
			}
			e.n[i] += sign
		}
	}
}

func (e *quantileEstimator) initialize() {
	for i := 1; i < 5; i++ {
		key := e.initBuffer[i]
		j := i - 1
		for j >= 0 && e.initBuffer[j] > key {
			e.initBuffer[j+1] = e.initBuffer[j]
			j--
		}
		e.initBuffer[j+1] = key
	}
	for i := 0; i < 5; i++ {
		e.q[i] = e.initBuffer[i]
		e.n[i] = i
	}
	e.np = [5]float64{0, 2 * e.p, 4 * e.p, 2 + 2*e.p, 4}
	e.initialized = true
}

func (e *quantileEstimator) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(e.n[i])
	niPrev := float64(e.n[i-1])
	niNext := float64(e.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (e.q[i+1] - e.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (e.q[i] - e.q[i-1]) / (ni - niPrev)
	return e.q[i] + term1*(term2+term3)
}

func (e *quantileEstimator) linear(i, d int) float64 {
	if d == 1 {
		return e.q[i] + (e.q[i+1]-e.q[i])/float64(e.n[i+1]-e.n[i])
	}
	return e.q[i] - (e.q[i]-e.q[i-1])/float64(e.n[i]-e.n[i-1])
}

// Quantile returns the current quantile estimate.
func (e *quantileEstimator) Quantile() float64 {
	if e.count == 0 {
		return 0
	}
	if e.count < 5 {
		sorted := make([]float64, e.count)
		copy(sorted, e.initBuffer[:e.count])
		for i := 1; i < e.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(e.count-1) * e.p)
		if index >= e.count {
			index = e.count - 1
		}
		return sorted[index]
	}
	return e.q[2]
}

// Count returns the number of observations folded in so far.
func (e *quantileEstimator) Count() int { return e.count }

// Max returns the largest observed value.
func (e *quantileEstimator) Max() float64 {
	if e.count == 0 {
		return 0
	}
	if e.count < 5 {
		max := e.initBuffer[0]
		for i := 1; i < e.count; i++ {
			if e.initBuffer[i] > max {
				max = e.initBuffer[i]
			}
		}
		return max
	}
	return e.q[4]
}

// latencyDigest tracks several percentiles of the same observation stream
// with one estimator per percentile, plus running sum/mean/max — the
// shape metrics.go uses to report task-execution latency without a
// separate full-history histogram.
type latencyDigest struct {
	estimators []*quantileEstimator
	sum        float64
	count      int
	max        float64
}

// newLatencyDigest builds a digest tracking the given percentiles (each in
// [0, 1], e.g. 0.5, 0.9, 0.99).
func newLatencyDigest(percentiles ...float64) *latencyDigest {
	d := &latencyDigest{estimators: make([]*quantileEstimator, len(percentiles))}
	for i, p := range percentiles {
		d.estimators[i] = newQuantileEstimator(p)
	}
	return d
}

// Observe folds a new latency sample (in whatever unit the caller uses
// consistently, metrics.go uses nanoseconds) into every tracked estimator.
func (d *latencyDigest) Observe(x float64) {
	for _, e := range d.estimators {
		e.Update(x)
	}
	d.sum += x
	d.count++
	if x > d.max {
		d.max = x
	}
}

// Quantile returns the i'th tracked percentile's current estimate.
func (d *latencyDigest) Quantile(i int) float64 {
	if i < 0 || i >= len(d.estimators) {
		return 0
	}
	return d.estimators[i].Quantile()
}

func (d *latencyDigest) Count() int { return d.count }
func (d *latencyDigest) Max() float64 { return d.max }

// Mean returns the arithmetic mean of every sample observed so far. Unlike
// the quantile estimates this is exact, not approximated, since it only
// needs a running sum.
func (d *latencyDigest) Mean() float64 {
	if d.count == 0 {
		return 0
	}
	return d.sum / float64(d.count)
}
