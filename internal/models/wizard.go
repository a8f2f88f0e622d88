package models

// ============================================================================
// WIZARD STEPS
// ============================================================================

// WizardStep is one of the four booking wizard states.
type WizardStep int

const (
	StepDetails WizardStep = 1
	StepTrip    WizardStep = 2
	StepPackage WizardStep = 3
	StepPayment WizardStep = 4
)

// String returns the display name of a step.
func (s WizardStep) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepTrip:
		return "trip"
	case StepPackage:
		return "package"
	case StepPayment:
		return "payment"
	default:
		return "unknown"
	}
}

// Persistence stages run as side effects of advancing a step.
const (
	StageCustomer = "customer"
	StageVehicle  = "vehicle"
	StageBilling  = "billing"
)

// AdvanceResult reports the outcome of an advance attempt. When a persistence
// side effect fails the step does not move; FailedStage names the stage so
// the caller can decide whether to retry.
type AdvanceResult struct {
	Advanced    bool       `json:"advanced"`
	Step        WizardStep `json:"step"`
	FailedStage string     `json:"failed_stage,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// StepCompleteness is the per-step gating state exposed to the client.
type StepCompleteness struct {
	Details bool `json:"details"`
	Trip    bool `json:"trip"`
	Package bool `json:"package"`
	Payment bool `json:"payment"`
}

// NewValidationError creates a validation error with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// ValidationError represents a locally computed validation failure. It blocks
// step advancement and never involves the network.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
