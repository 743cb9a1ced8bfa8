package aspect

import (
	"context"
	"strings"

	"github.com/warmofmeme/memeboard/internal/domain"
	"github.com/warmofmeme/memeboard/internal/models"
	"go.uber.org/zap"
)

// LoggingAspect logs every service and repository call through the registry.
type LoggingAspect struct {
	logger *zap.Logger
}

// NewLoggingAspect constructs the logging aspect.
func NewLoggingAspect(logger *zap.Logger) *LoggingAspect {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingAspect{logger: logger}
}

// Applies matches service and repository targets.
func (a *LoggingAspect) Applies(call Call) bool {
	return strings.HasSuffix(call.Target, "Service") || strings.HasSuffix(call.Target, "Repository")
}

// Before logs the call start.
func (a *LoggingAspect) Before(_ context.Context, call Call) error {
	a.logger.Debug("call started",
		zap.String("target", call.Target),
		zap.String("operation", call.Operation))
	return nil
}

// AfterReturning logs successful completion.
func (a *LoggingAspect) AfterReturning(_ context.Context, call Call, _ any) {
	a.logger.Debug("call completed",
		zap.String("target", call.Target),
		zap.String("operation", call.Operation))
}

// AfterThrowing logs the in-flight error without suppressing it.
func (a *LoggingAspect) AfterThrowing(_ context.Context, call Call, err error) {
	a.logger.Error("call failed",
		zap.String("target", call.Target),
		zap.String("operation", call.Operation),
		zap.Error(err))
}

// ValidationAspect runs the payload's own validation ahead of operations
// tagged CapValidated, aborting the call on failure.
type ValidationAspect struct{}

// NewValidationAspect constructs the validation aspect.
func NewValidationAspect() *ValidationAspect {
	return &ValidationAspect{}
}

// Applies matches calls tagged as validated.
func (a *ValidationAspect) Applies(call Call) bool {
	return call.Capabilities.Has(CapValidated)
}

// Before validates the payload when it knows how.
func (a *ValidationAspect) Before(_ context.Context, call Call) error {
	validator, ok := call.Payload.(Validator)
	if !ok {
		return nil
	}
	return validator.Validate()
}

// SessionSource exposes the current session to the security aspect.
type SessionSource interface {
	CurrentUser() (*models.User, bool)
}

// SecurityAspect short-circuits calls that require an authenticated session
// or the moderator role.
type SecurityAspect struct {
	sessions SessionSource
}

// NewSecurityAspect constructs the security aspect around a session source.
func NewSecurityAspect(sessions SessionSource) *SecurityAspect {
	return &SecurityAspect{sessions: sessions}
}

// Applies matches calls tagged with an authentication requirement.
func (a *SecurityAspect) Applies(call Call) bool {
	return call.Capabilities.Has(CapRequiresAuth) || call.Capabilities.Has(CapRequiresModerator)
}

// Before rejects unauthenticated sessions, and non-moderators for calls that
// demand the role.
func (a *SecurityAspect) Before(_ context.Context, call Call) error {
	if a.sessions == nil {
		return domain.ErrUnauthorized
	}
	user, ok := a.sessions.CurrentUser()
	if !ok || user == nil {
		return domain.ErrUnauthorized
	}
	if call.Capabilities.Has(CapRequiresModerator) && user.Role != models.RoleModerator {
		return domain.ErrForbidden
	}
	return nil
}
