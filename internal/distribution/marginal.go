package distribution

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/carshare-tariff/pkg/constants"
	"github.com/iwvelando/carshare-tariff/pkg/mathutil"
	"gonum.org/v1/gonum/stat/distuv"
)

// Supported duration/distance families.
const (
	FamilyLogNormal   = "lognormal"
	FamilyExponential = "exponential"
)

// Marginal maps a uniform draw onto a positive quantity.
type Marginal interface {
	Quantile(u float64) float64
}

// LogNormal inverts through the inverse error function.
type LogNormal struct {
	Mu    float64
	Sigma float64
}

// Quantile returns exp(mu + sigma*sqrt(2)*erfinv(2u-1)) with u kept off 0 and 1.
func (l LogNormal) Quantile(u float64) float64 {
	u = clipUniform(u)
	return math.Exp(l.Mu + l.Sigma*math.Sqrt2*math.Erfinv(2*u-1))
}

// Exponential inverts through the negative log.
type Exponential struct {
	Rate float64
}

// Quantile returns -ln(1-u)/rate with u kept off 0 and 1.
func (e Exponential) Quantile(u float64) float64 {
	return distuv.Exponential{Rate: e.Rate}.Quantile(clipUniform(u))
}

func clipUniform(u float64) float64 {
	return mathutil.Clamp(u, constants.UniformClip, 1-constants.UniformClip)
}

// CanonicalFamily normalizes a family name, defaulting to lognormal.
func CanonicalFamily(family string) string {
	switch strings.ToLower(strings.TrimSpace(family)) {
	case "", "lognormal", "log-normal", "log_normal":
		return FamilyLogNormal
	case "exponential", "exp":
		return FamilyExponential
	default:
		return strings.ToLower(strings.TrimSpace(family))
	}
}

// NewMarginal builds the marginal for a family. Lognormal uses mu and sigma,
// exponential uses rate.
func NewMarginal(family string, mu, sigma, rate float64) (Marginal, error) {
	switch CanonicalFamily(family) {
	case FamilyLogNormal:
		if sigma <= 0 {
			return nil, fmt.Errorf("lognormal sigma %.4f must be positive", sigma)
		}
		return LogNormal{Mu: mu, Sigma: sigma}, nil
	case FamilyExponential:
		if rate <= 0 {
			return nil, fmt.Errorf("exponential rate %.4f must be positive", rate)
		}
		return Exponential{Rate: rate}, nil
	default:
		return nil, fmt.Errorf("distribution family %q is not supported", family)
	}
}
