package strategy

import "fmt"

const (
	CodeInvalidWeight      = "invalid_weight"
	CodeInvalidRating      = "invalid_rating"
	CodeInvalidCategory    = "invalid_category"
	CodeInvalidDescription = "invalid_description"
	CodeInvalidMatrix      = "invalid_matrix"
	CodeDuplicateID        = "duplicate_id"
)

const (
	msgInvalidWeight = "Weight must be between 0.0 and 1.0"
	msgInvalidRating = "Rating must be between 1 and 4"
)

// Error is a rejected field or collection mutation. Two errors match under
// errors.Is when their codes are equal, so callers compare against the
// Err* sentinels regardless of the detail message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrInvalidWeight      = newError(CodeInvalidWeight, msgInvalidWeight)
	ErrInvalidRating      = newError(CodeInvalidRating, msgInvalidRating)
	ErrInvalidCategory    = newError(CodeInvalidCategory, "category does not belong to this matrix")
	ErrInvalidDescription = newError(CodeInvalidDescription, "Description is required")
	ErrInvalidMatrix      = newError(CodeInvalidMatrix, "unknown matrix")
)

// WeightSumWarning is advisory: a matrix whose weights do not add up to 1.0
// still scores, it is just not comparable across matrices.
type WeightSumWarning struct {
	Sum float64
}

func (w *WeightSumWarning) Error() string {
	return fmt.Sprintf("Weights sum to %.2f, expected 1.00", w.Sum)
}
