package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/carshare-tariff/internal/tariff"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Constraint is satisfied when it evaluates to zero or more.
type Constraint func(x []float64) float64

// Problem is a bounded minimization with inequality constraints.
type Problem struct {
	Objective   func(x []float64) float64
	Bounds      []tariff.Interval
	Constraints []Constraint
}

// Solution is the outcome of a solve. X always lies within the bounds.
type Solution struct {
	X            []float64
	F            float64
	Converged    bool
	Message      string
	Iterations   int
	MaxViolation float64
}

// Solver minimizes a Problem from x0 within maxIter iterations.
type Solver interface {
	Minimize(p Problem, x0 []float64, maxIter int) (Solution, error)
}

const (
	defaultInitialPenalty  = 10.0
	defaultPenaltyGrowth   = 10.0
	defaultMaxPenalty      = 1e8
	defaultOuterIterations = 30
	defaultSimplexSize     = 0.1
	defaultTolerance       = 1e-6
	boxPenaltyWeight       = 1e3
	stepTolerance          = 1e-4
	innerStallIterations   = 40
)

// AugmentedLagrangian handles inequality constraints with a PHR augmented
// Lagrangian and minimizes each subproblem with Nelder-Mead on the unit box.
// Points outside the box are projected before evaluation and pay a quadratic
// penalty proportional to their distance.
type AugmentedLagrangian struct {
	Logger          *zap.Logger
	InitialPenalty  float64
	PenaltyGrowth   float64
	MaxPenalty      float64
	OuterIterations int
	SimplexSize     float64
	Tolerance       float64
}

func (a *AugmentedLagrangian) withDefaults() AugmentedLagrangian {
	s := *a
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.InitialPenalty <= 0 {
		s.InitialPenalty = defaultInitialPenalty
	}
	if s.PenaltyGrowth <= 1 {
		s.PenaltyGrowth = defaultPenaltyGrowth
	}
	if s.MaxPenalty <= 0 {
		s.MaxPenalty = defaultMaxPenalty
	}
	if s.OuterIterations <= 0 {
		s.OuterIterations = defaultOuterIterations
	}
	if s.SimplexSize <= 0 {
		s.SimplexSize = defaultSimplexSize
	}
	if s.Tolerance <= 0 {
		s.Tolerance = defaultTolerance
	}
	return s
}

// unitBox maps between problem coordinates and the unit box.
type unitBox struct {
	bounds []tariff.Interval
}

func (b unitBox) toUnit(x []float64) []float64 {
	z := make([]float64, len(x))
	for i, iv := range b.bounds {
		if iv.Width() <= 0 {
			continue
		}
		z[i] = (iv.Clamp(x[i]) - iv.Min) / iv.Width()
	}
	return z
}

// fromUnit projects z onto the box and maps it back, returning the squared
// distance of z from the box.
func (b unitBox) fromUnit(z []float64) ([]float64, float64) {
	x := make([]float64, len(z))
	outside := 0.0
	for i, iv := range b.bounds {
		zi := z[i]
		switch {
		case zi < 0:
			outside += zi * zi
			zi = 0
		case zi > 1:
			outside += (zi - 1) * (zi - 1)
			zi = 1
		}
		x[i] = iv.Min + zi*iv.Width()
	}
	return x, outside
}

// Minimize implements Solver.
func (a *AugmentedLagrangian) Minimize(p Problem, x0 []float64, maxIter int) (Solution, error) {
	s := a.withDefaults()
	if p.Objective == nil {
		return Solution{}, fmt.Errorf("problem requires an objective")
	}
	if len(x0) != len(p.Bounds) {
		return Solution{}, fmt.Errorf("start vector has %d values for %d bounds", len(x0), len(p.Bounds))
	}
	if len(x0) == 0 {
		return Solution{}, fmt.Errorf("problem has no variables")
	}
	if maxIter <= 0 {
		return Solution{}, fmt.Errorf("iteration budget must be positive, got %d", maxIter)
	}

	box := unitBox{bounds: p.Bounds}
	m := len(p.Constraints)
	lambda := make([]float64, m)
	rho := s.InitialPenalty

	// evaluate returns the objective and constraint values at the projected point.
	evaluate := func(z []float64) (float64, []float64, float64) {
		x, outside := box.fromUnit(z)
		f := p.Objective(x)
		c := make([]float64, m)
		for j, con := range p.Constraints {
			c[j] = con(x)
		}
		return f, c, outside
	}
	violation := func(c []float64) float64 {
		v := 0.0
		for _, cj := range c {
			v = math.Max(v, -cj)
		}
		return v
	}

	z := box.toUnit(x0)
	f, c, _ := evaluate(z)
	best := candidate{z: z, f: f, violation: violation(c)}
	prevF := f
	prevZ := append([]float64(nil), z...)
	prevViolation := best.violation

	used := 0
	simplex := s.SimplexSize
	message := ""
	converged := false

	for outer := 0; outer < s.OuterIterations; outer++ {
		remaining := maxIter - used
		if remaining <= 0 {
			message = "Iteration limit reached"
			break
		}

		lagrangian := func(zz []float64) float64 {
			f, c, outside := evaluate(zz)
			penalty := 0.0
			for j, cj := range c {
				shifted := math.Max(0, lambda[j]-rho*cj)
				penalty += shifted*shifted - lambda[j]*lambda[j]
			}
			return f + penalty/(2*rho) + boxPenaltyWeight*outside
		}

		result, err := optimize.Minimize(
			optimize.Problem{Func: lagrangian},
			z,
			&optimize.Settings{
				MajorIterations: remaining,
				Converger: &optimize.FunctionConverge{
					Absolute:   1e-12,
					Relative:   1e-10,
					Iterations: innerStallIterations,
				},
			},
			&optimize.NelderMead{SimplexSize: simplex},
		)
		if result == nil {
			return Solution{}, fmt.Errorf("inner minimization failed: %w", err)
		}
		if err != nil {
			s.Logger.Debug("inner minimization stopped early",
				zap.String("op", "optimizer.AugmentedLagrangian.Minimize"),
				zap.Int("outer", outer),
				zap.Error(err),
			)
		}
		used += result.Stats.MajorIterations

		z, _ = box.fromUnit(result.X)
		z = box.toUnit(z)
		f, c, _ = evaluate(z)
		v := violation(c)
		best = best.better(candidate{z: z, f: f, violation: v}, s.Tolerance)

		for j, cj := range c {
			lambda[j] = math.Max(0, lambda[j]-rho*cj)
		}

		s.Logger.Debug("augmented lagrangian iteration",
			zap.String("op", "optimizer.AugmentedLagrangian.Minimize"),
			zap.Int("outer", outer),
			zap.Int("iterations", used),
			zap.Float64("objective", f),
			zap.Float64("violation", v),
			zap.Float64("penalty", rho),
		)

		step := floats.Distance(z, prevZ, math.Inf(1))
		if v <= s.Tolerance && outer > 0 &&
			math.Abs(f-prevF) <= s.Tolerance*(1+math.Abs(f)) && step <= stepTolerance {
			converged = true
			message = "Optimization terminated successfully"
			break
		}

		if v > s.Tolerance && v > 0.25*prevViolation {
			rho = math.Min(rho*s.PenaltyGrowth, s.MaxPenalty)
		}
		prevF = f
		prevViolation = v
		copy(prevZ, z)
		simplex = math.Max(simplex/2, 1e-3)
	}

	if !converged && message == "" {
		if best.violation > s.Tolerance {
			message = fmt.Sprintf("Inequality constraints incompatible (max violation %.3g)", best.violation)
		} else {
			message = "Outer iteration limit reached"
		}
	} else if !converged && best.violation > s.Tolerance {
		message = fmt.Sprintf("%s; constraints violated by up to %.3g", message, best.violation)
	}

	x, _ := box.fromUnit(best.z)
	return Solution{
		X:            x,
		F:            best.f,
		Converged:    converged,
		Message:      message,
		Iterations:   used,
		MaxViolation: best.violation,
	}, nil
}

// candidate is a visited point in unit coordinates.
type candidate struct {
	z         []float64
	f         float64
	violation float64
}

// better prefers feasible points, then lower objective among feasible points,
// then lower violation among infeasible ones.
func (c candidate) better(other candidate, tol float64) candidate {
	cFeasible := c.violation <= tol
	oFeasible := other.violation <= tol
	switch {
	case oFeasible && !cFeasible:
		return other
	case cFeasible && !oFeasible:
		return c
	case oFeasible && cFeasible:
		if other.f <= c.f {
			return other
		}
		return c
	default:
		if other.violation < c.violation {
			return other
		}
		return c
	}
}
