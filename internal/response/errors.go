package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied      ErrCode = "PERMISSION_DENIED"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrProctorAccessOnly     ErrCode = "PROCTOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrResultNotFound ErrCode = "RESULT_NOT_FOUND"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrTestNotAvailable      ErrCode = "TEST_NOT_AVAILABLE"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"
	ErrAttemptAlreadyActive  ErrCode = "ATTEMPT_ALREADY_ACTIVE"
	ErrAlreadyCompleted      ErrCode = "ALREADY_COMPLETED"
	ErrNoActiveAttempt       ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrQuestionNotInAttempt  ErrCode = "QUESTION_NOT_IN_ATTEMPT"
	ErrPositionOutOfRange    ErrCode = "POSITION_OUT_OF_RANGE"
	ErrDeadlineExceeded      ErrCode = "DEADLINE_EXCEEDED"
	ErrAttemptBusy           ErrCode = "ATTEMPT_BUSY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrParticipantAccessOnly:
		return "This resource is restricted to participants."
	case ErrProctorAccessOnly:
		return "This resource is restricted to proctors."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrResultNotFound:
		return "No result exists for this test yet."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrTestNotAvailable:
		return "This test is not currently available."
	case ErrInsufficientQuestions:
		return "This test does not have enough questions to start."
	case ErrAttemptAlreadyActive:
		return "You already have an attempt in progress for this test."
	case ErrAlreadyCompleted:
		return "You have already completed this test."
	case ErrNoActiveAttempt:
		return "You have no attempt in progress for this test."
	case ErrQuestionNotInAttempt:
		return "This question is not part of your attempt."
	case ErrPositionOutOfRange:
		return "Question number is out of range."
	case ErrDeadlineExceeded:
		return "Time is up. Please submit your attempt."
	case ErrAttemptBusy:
		return "Your attempt is being updated. Please retry."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
