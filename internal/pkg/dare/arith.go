package dare

type counter interface {
	~uint32 | ~uint64
}

// checkedAdd fails loudly on overflow. Used for every increasing counter.
func checkedAdd[T counter](a, b T) (T, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}

	return sum, nil
}

// saturatingSub floors at zero. Used only for refund-path spend tracking.
func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}

	return a - b
}

// checkedDeadline computes base+offset for deadline comparisons.
func checkedDeadline(base, offset int64) (int64, error) {
	sum := base + offset
	if (offset > 0 && sum < base) || (offset < 0 && sum > base) {
		return 0, ErrArithmeticOverflow
	}

	return sum, nil
}
