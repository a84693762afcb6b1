package envelope

import "slices"

// SuccessCodes is the set of status codes an operation treats as success.
type SuccessCodes struct {
	codes  []int
	any2xx bool
}

// Codes returns a set containing exactly the given codes.
func Codes(codes ...int) SuccessCodes {
	return SuccessCodes{codes: codes}
}

// Any2xx accepts every status in [200, 300).
var Any2xx = SuccessCodes{any2xx: true}

// Contains reports whether code is a success.
func (s SuccessCodes) Contains(code int) bool {
	if s.any2xx {
		return code >= 200 && code < 300
	}
	return slices.Contains(s.codes, code)
}
