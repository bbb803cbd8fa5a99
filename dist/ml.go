package dist

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// Bounds for the maximum likelihood distance search.
const (
	minMLDistance = 1e-8
	maxMLDistance = 100
)

// f81Objective is the negative pairwise F81 log-likelihood as a
// function of the distance. Under F81 the probability that a site
// shows the same base in both sequences at distance d is
// s(d) = sum(pi^2) + b*exp(-d/b) with b = 1 - sum(pi^2), which gives
// the analytic gradient used below.
type f81Objective struct {
	nSame, nDiff float64
	pi2, b       float64
	grad         []float64
}

func (o *f81Objective) same(d float64) float64 {
	return o.pi2 + o.b*math.Exp(-d/o.b)
}

func (o *f81Objective) EvaluateFunction(x []float64) float64 {
	s := o.same(x[0])
	if s <= 0 || s >= 1 {
		return math.Inf(1)
	}
	return -(o.nSame*math.Log(s) + o.nDiff*math.Log(1-s))
}

func (o *f81Objective) EvaluateGradient(x []float64) []float64 {
	if o.grad == nil {
		o.grad = make([]float64, 1)
	}
	s := o.same(x[0])
	// ds/dd = -exp(-d/b)
	ds := -math.Exp(-x[0] / o.b)
	o.grad[0] = -(o.nSame/s - o.nDiff/(1-s)) * ds
	return o.grad
}

// mlF81Distance maximizes the pairwise F81 likelihood in the distance
// with bounded L-BFGS-B, starting from the closed-form estimate. For
// a saturated pair the closed form is +Inf and is returned as is.
func mlF81Distance(c *pairCounts, start float64) (float64, error) {
	if math.IsInf(start, 1) {
		return start, nil
	}
	b := f81B(c)
	obj := &f81Objective{
		nSame: float64(c.l - c.d),
		nDiff: float64(c.d),
		pi2:   1 - b,
		b:     b,
	}
	if start < minMLDistance {
		start = minMLDistance
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-12)
	opt.SetGTolerance(1e-12)
	opt.SetBounds([][2]float64{{minMLDistance, maxMLDistance}})

	minimum, exitStatus := opt.Minimize(obj, []float64{start})
	log.Debugf("L-BFGS-B exit status: %v", exitStatus)
	return minimum.X[0], nil
}
