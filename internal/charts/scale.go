package charts

import "math"

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// Linear maps a continuous domain onto a pixel range.
type Linear struct {
	D0, D1 float64
	R0, R1 float64
}

// Scale returns the range position of v. A degenerate domain maps to the
// middle of the range.
func (s Linear) Scale(v float64) float64 {
	if s.D0 == s.D1 {
		return (s.R0 + s.R1) / 2
	}
	t := (v - s.D0) / (s.D1 - s.D0)
	return s.R0 + t*(s.R1-s.R0)
}

// Nice extends the domain so both ends land on round tick steps for about
// count ticks.
func (s Linear) Nice(count int) Linear {
	start, stop := s.D0, s.D1
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}
	if start == stop || count <= 0 {
		return s
	}

	var prestep float64
	converged := false
	for range 10 {
		step := tickIncrement(start, stop, count)
		if step == prestep {
			converged = true
			break
		}
		switch {
		case step > 0:
			start = math.Floor(start/step) * step
			stop = math.Ceil(stop/step) * step
		case step < 0:
			start = math.Ceil(start*step) / step
			stop = math.Floor(stop*step) / step
		default:
			return s
		}
		prestep = step
	}
	if !converged {
		return s
	}

	if reversed {
		start, stop = stop, start
	}
	s.D0, s.D1 = start, stop
	return s
}

// Ticks returns roughly count round values spanning the domain.
func (s Linear) Ticks(count int) []float64 {
	return ticks(s.D0, s.D1, count)
}

// tickSpec returns integer bounds and the increment for ticks between start
// and stop. A negative increment means the step is 1/-inc, which keeps
// fractional steps exact.
func tickSpec(start, stop float64, count int) (i1, i2, inc float64) {
	step := (stop - start) / math.Max(0, float64(count))
	power := math.Floor(math.Log10(step))
	errRatio := step / math.Pow(10, power)

	factor := 1.0
	switch {
	case errRatio >= e10:
		factor = 10
	case errRatio >= e5:
		factor = 5
	case errRatio >= e2:
		factor = 2
	}

	if power < 0 {
		inc = math.Pow(10, -power) / factor
		i1 = math.Round(start * inc)
		i2 = math.Round(stop * inc)
		if i1/inc < start {
			i1++
		}
		if i2/inc > stop {
			i2--
		}
		inc = -inc
	} else {
		inc = math.Pow(10, power) * factor
		i1 = math.Round(start / inc)
		i2 = math.Round(stop / inc)
		if i1*inc < start {
			i1++
		}
		if i2*inc > stop {
			i2--
		}
	}
	if i2 < i1 && count == 1 {
		return tickSpec(start, stop, count*2)
	}
	return i1, i2, inc
}

func tickIncrement(start, stop float64, count int) float64 {
	_, _, inc := tickSpec(start, stop, count)
	return inc
}

func ticks(start, stop float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if start == stop {
		return []float64{start}
	}
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}
	i1, i2, inc := tickSpec(start, stop, count)
	if !(i2 >= i1) {
		return nil
	}

	n := int(i2-i1) + 1
	out := make([]float64, n)
	for i := range n {
		if inc < 0 {
			out[i] = (i1 + float64(i)) / -inc
		} else {
			out[i] = (i1 + float64(i)) * inc
		}
	}
	if reversed {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Band divides a continuous range into evenly spaced bands with equal inner
// and outer padding, centered in the range.
type Band struct {
	n         int
	start     float64
	step      float64
	bandwidth float64
}

func NewBand(n int, r0, r1, padding float64) Band {
	if n <= 0 {
		return Band{}
	}
	step := (r1 - r0) / math.Max(1, float64(n)-padding+padding*2)
	start := r0 + (r1-r0-step*(float64(n)-padding))*0.5
	return Band{n: n, start: start, step: step, bandwidth: step * (1 - padding)}
}

// X returns the left edge of band i.
func (b Band) X(i int) float64 {
	return b.start + b.step*float64(i)
}

func (b Band) Bandwidth() float64 {
	return b.bandwidth
}
