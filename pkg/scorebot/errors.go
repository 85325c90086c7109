package scorebot

import "errors"

var (
	// ErrInvalidMessage indicates an inbound message missing required fields.
	ErrInvalidMessage = errors.New("scorebot: invalid message")
	// ErrInvalidOutboundRequest indicates an outbound request missing required fields.
	ErrInvalidOutboundRequest = errors.New("scorebot: invalid outbound request")
	// ErrUnknownTarget indicates an outbound target naming no registered driver.
	ErrUnknownTarget = errors.New("scorebot: unknown outbound target")
	// ErrOutboundUnsupported indicates a driver that cannot perform an outbound operation.
	ErrOutboundUnsupported = errors.New("scorebot: outbound operation unsupported")
	// ErrServiceAlreadyRegistered indicates duplicate service registration.
	ErrServiceAlreadyRegistered = errors.New("scorebot: service already registered")
	// ErrServiceNotFound indicates a service lookup miss.
	ErrServiceNotFound = errors.New("scorebot: service not found")
	// ErrModuleAlreadyRegistered indicates duplicate module registration.
	ErrModuleAlreadyRegistered = errors.New("scorebot: module already registered")
	// ErrDriverAlreadyRegistered indicates duplicate driver registration.
	ErrDriverAlreadyRegistered = errors.New("scorebot: driver already registered")
	// ErrCommandAlreadyRegistered indicates two commands sharing one name.
	ErrCommandAlreadyRegistered = errors.New("scorebot: command already registered")
)

// UserError is a command failure that carries the reply shown to the user.
// The dispatcher sends Reply instead of its generic failure message.
type UserError struct {
	Reply string
	Err   error
}

// NewUserError wraps err with a user-facing reply.
func NewUserError(reply string, err error) *UserError {
	return &UserError{Reply: reply, Err: err}
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return "scorebot: user error"
	}

	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}
