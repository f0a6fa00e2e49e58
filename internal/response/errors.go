package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Entitlement ───────────────────────────────────────────────────
	ErrCategoryMismatch ErrCode = "CATEGORY_MISMATCH"
	ErrTestHidden       ErrCode = "TEST_HIDDEN"
	ErrTestNotAvailable ErrCode = "TEST_NOT_AVAILABLE"
	ErrRequiresPurchase ErrCode = "REQUIRES_PURCHASE"
	ErrAttemptLimit     ErrCode = "ATTEMPT_LIMIT_REACHED"

	// ─── Payments ──────────────────────────────────────────────────────
	ErrPaymentVerification ErrCode = "PAYMENT_VERIFICATION_FAILED"
	ErrOrderCreation       ErrCode = "ORDER_CREATION_FAILED"

	// ─── Submission ────────────────────────────────────────────────────
	ErrLateSubmission    ErrCode = "LATE_SUBMISSION"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrFeedbackSubmitted ErrCode = "FEEDBACK_ALREADY_SUBMITTED"
	ErrSubmitNotDurable  ErrCode = "SUBMISSION_NOT_SAVED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Entitlement ───────────────────────────────────────────────────
	case ErrCategoryMismatch:
		return "This test belongs to a different exam category than yours."
	case ErrTestHidden:
		return "This test is not currently visible."
	case ErrTestNotAvailable:
		return "This test is outside its availability window."
	case ErrRequiresPurchase:
		return "This test belongs to a paid series. Purchase the series to attempt it."
	case ErrAttemptLimit:
		return "You have reached the maximum number of attempts for this test."

	// ─── Payments ──────────────────────────────────────────────────────
	case ErrPaymentVerification:
		return "Payment verification failed. You have not been charged incorrectly; contact support if money was deducted."
	case ErrOrderCreation:
		return "Could not create a payment order. Please try again."

	// ─── Submission ────────────────────────────────────────────────────
	case ErrLateSubmission:
		return "This submission arrived too long after the test deadline and was rejected."
	case ErrAlreadySubmitted:
		return "This attempt was already submitted."
	case ErrFeedbackSubmitted:
		return "Feedback has already been recorded for this attempt."
	case ErrSubmitNotDurable:
		return "Your submission could not be saved. Please retry — your answers were not discarded."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
