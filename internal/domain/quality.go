package domain

// RiskLevel grades a reading's quality score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// QualityScore grades value against p's thresholds on a 0-100 scale where
// 100 is within the safe limit. pH is graded by its distance from the
// acceptable range and DO by how far it falls below the safe floor.
func QualityScore(p Parameter, value float64) float64 {
	t := p.Thresholds
	switch p.Code {
	case ParamPH:
		return phScore(t, value)
	case ParamDO:
		switch {
		case value >= t.Safe:
			return 100
		case value >= t.Moderate:
			return clamp(interpolate(value, t.Moderate, t.Safe, 75, 100))
		case value >= t.High:
			return clamp(interpolate(value, t.High, t.Moderate, 50, 75))
		case value >= t.Critical:
			return clamp(interpolate(value, t.Critical, t.High, 25, 50))
		}
		return 0
	}

	switch {
	case value <= t.Safe:
		return 100
	case value <= t.Moderate:
		return clamp(interpolate(value, t.Safe, t.Moderate, 100, 75))
	case value <= t.High:
		return clamp(interpolate(value, t.Moderate, t.High, 75, 50))
	case value <= t.Critical:
		return clamp(interpolate(value, t.High, t.Critical, 50, 25))
	}
	return 0
}

func phScore(t Thresholds, value float64) float64 {
	if value >= t.Safe && value <= t.Moderate {
		return 100
	}
	dist := value - t.Moderate
	if value < t.Safe {
		dist = t.Safe - value
	}
	switch {
	case dist <= 0.5:
		return 85
	case dist <= 1:
		return 70
	case dist <= 1.5:
		return 50
	case dist <= 2:
		return 30
	}
	return 0
}

// RiskForScore maps a quality score to a risk level.
func RiskForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskMedium
	case score >= 40:
		return RiskHigh
	}
	return RiskCritical
}

func interpolate(v, a, b, scoreA, scoreB float64) float64 {
	if a == b {
		return scoreB
	}
	return scoreA + (v-a)/(b-a)*(scoreB-scoreA)
}

func clamp(v float64) float64 {
	return max(0, min(100, v))
}
