package levels

// PivotMethod selects a pivot point formula.
type PivotMethod string

const (
	PivotClassic   PivotMethod = "classic"
	PivotFibonacci PivotMethod = "fibonacci"
	PivotWoodie    PivotMethod = "woodie"
	PivotCamarilla PivotMethod = "camarilla"
)

// Pivots holds one method's pivot set, in rupees.
type Pivots struct {
	Method PivotMethod `json:"method"`
	Pivot  float64     `json:"pivot"`
	R1     float64     `json:"r1"`
	R2     float64     `json:"r2"`
	R3     float64     `json:"r3"`
	S1     float64     `json:"s1"`
	S2     float64     `json:"s2"`
	S3     float64     `json:"s3"`
}

// ComputePivots derives pivot levels from the prior session's high, low
// and close (rupees). Unknown methods fall back to classic.
func ComputePivots(high, low, closePrice float64, method PivotMethod) Pivots {
	rng := high - low
	p := Pivots{Method: method}

	switch method {
	case PivotFibonacci:
		p.Pivot = (high + low + closePrice) / 3
		p.R1 = p.Pivot + 0.382*rng
		p.R2 = p.Pivot + 0.618*rng
		p.R3 = p.Pivot + rng
		p.S1 = p.Pivot - 0.382*rng
		p.S2 = p.Pivot - 0.618*rng
		p.S3 = p.Pivot - rng

	case PivotWoodie:
		// Woodie doubles the close's weight in the pivot.
		p.Pivot = (high + low + 2*closePrice) / 4
		p.R1 = 2*p.Pivot - low
		p.R2 = p.Pivot + rng
		p.R3 = high + 2*(p.Pivot-low)
		p.S1 = 2*p.Pivot - high
		p.S2 = p.Pivot - rng
		p.S3 = low - 2*(high-p.Pivot)

	case PivotCamarilla:
		p.Pivot = (high + low + closePrice) / 3
		p.R1 = closePrice + 1.1*rng/12
		p.R2 = closePrice + 1.1*rng/6
		p.R3 = closePrice + 1.1*rng/4
		p.S1 = closePrice - 1.1*rng/12
		p.S2 = closePrice - 1.1*rng/6
		p.S3 = closePrice - 1.1*rng/4

	default:
		p.Method = PivotClassic
		p.Pivot = (high + low + closePrice) / 3
		p.R1 = 2*p.Pivot - low
		p.R2 = p.Pivot + rng
		p.R3 = high + 2*(p.Pivot-low)
		p.S1 = 2*p.Pivot - high
		p.S2 = p.Pivot - rng
		p.S3 = low - 2*(high-p.Pivot)
	}
	return p
}
