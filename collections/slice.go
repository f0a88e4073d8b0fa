package collections

// Key addresses list elements: either a single Index or a Slice.
type Key interface {
	isKey()
}

// Index addresses one element. Negative values count from the tail.
type Index int64

func (Index) isKey() {}

// Slice addresses a range of elements with the usual half-open slice rules:
// nil bounds are open, negative bounds count from the tail, out-of-range
// bounds are clipped. A zero Step means 1.
type Slice struct {
	Start *int64
	Stop  *int64
	Step  int64
}

func (Slice) isKey() {}

// Span is the slice [start:stop].
func Span(start, stop int64) Slice {
	return Slice{Start: &start, Stop: &stop}
}

// From is the slice [start:].
func From(start int64) Slice {
	return Slice{Start: &start}
}

// Until is the slice [:stop].
func Until(stop int64) Slice {
	return Slice{Stop: &stop}
}

// Whole is the slice [:].
func Whole() Slice {
	return Slice{}
}

// By returns a copy of s with the given step.
func (s Slice) By(step int64) Slice {
	s.Step = step
	return s
}

func (s Slice) step() int64 {
	if s.Step == 0 {
		return 1
	}
	return s.Step
}

// Indices resolves s against a sequence of the given length, returning the
// concrete start, stop and step.
func (s Slice) Indices(length int64) (start, stop, step int64) {
	step = s.step()

	lower, upper := int64(0), length
	if step < 0 {
		lower, upper = -1, length-1
	}

	clip := func(bound *int64, def int64) int64 {
		if bound == nil {
			return def
		}
		v := *bound
		if v < 0 {
			v += length
			if v < lower {
				v = lower
			}
		} else if v > upper {
			v = upper
		}
		return v
	}

	if step < 0 {
		return clip(s.Start, upper), clip(s.Stop, lower), step
	}
	return clip(s.Start, lower), clip(s.Stop, upper), step
}

// positions lists the element positions s selects in a sequence of the given length.
func (s Slice) positions(length int64) []int64 {
	start, stop, step := s.Indices(length)
	var out []int64
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}
