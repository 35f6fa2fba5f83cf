package srouter

import "errors"

// Validator accumulates structural errors found while validating a frame's
// size/length fields against the buffer that backs it. Every Frame type's
// ValidateSize method takes one; zero value is ready to use.
type Validator struct {
	accum []error
}

// AddError records a validation failure.
func (v *Validator) AddError(err error) {
	if err != nil {
		v.accum = append(v.accum, err)
	}
}

// HasError reports whether any error has been recorded since the last reset.
func (v *Validator) HasError() bool { return len(v.accum) > 0 }

// ErrPop returns the first recorded error, or nil, and clears the validator.
func (v *Validator) ErrPop() error {
	if len(v.accum) == 0 {
		return nil
	}
	err := v.accum[0]
	v.accum = v.accum[:0]
	return err
}

// Err returns all recorded errors joined together, or nil if none.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// Reset clears all recorded errors, readying the validator for reuse.
func (v *Validator) Reset() { v.accum = v.accum[:0] }
