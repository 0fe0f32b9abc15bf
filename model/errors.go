package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// DimensionError reports a shape mismatch among the weight dimension D, the
// output dimension N, and the shapes of a design matrix, noise covariance or
// observation vector.
type DimensionError struct {
	Op     string // Operation that detected the mismatch
	Detail string // What did not line up
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch: %s", e.Op, e.Detail)
}

// NumericalError reports a matrix that could not be factored (or solved
// against) even though it is required to be positive-definite.
type NumericalError struct {
	Op     string // Operation that needed the factorization
	Matrix string // Which matrix failed (weight precision, noise covariance, ...)
	Err    error  // Underlying cause, may be nil
}

func (e *NumericalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Matrix, e.Err)
	}
	return fmt.Sprintf("%s: %s is not positive-definite", e.Op, e.Matrix)
}

// Unwrap exposes the underlying cause
func (e *NumericalError) Unwrap() error {
	return e.Err
}

func dimErrorf(op string, format string, args ...interface{}) error {
	return errors.WithStack(&DimensionError{
		Op:     op,
		Detail: fmt.Sprintf(format, args...),
	})
}

func numError(op string, matrix string, cause error) error {
	return errors.WithStack(&NumericalError{
		Op:     op,
		Matrix: matrix,
		Err:    cause,
	})
}

// IsDimension returns true if err (or anything it wraps) is a DimensionError
func IsDimension(err error) bool {
	var de *DimensionError
	return errors.As(err, &de)
}

// IsNumerical returns true if err (or anything it wraps) is a NumericalError
func IsNumerical(err error) bool {
	var ne *NumericalError
	return errors.As(err, &ne)
}

func errNegativeVariance(v float64) error {
	return errors.Errorf("isotropic variance %g is negative", v)
}
