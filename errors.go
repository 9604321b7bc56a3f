package serialmux

import "errors"

// Predefined error types for robust error handling
var (
	// Configuration errors, detected before any OS resource is touched
	ErrInvalidConfig   = errors.New("invalid serial configuration")
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrNameTooLong     = errors.New("node name too long")
	ErrDuplicateName   = errors.New("node name already registered")

	// Node graph errors; the graph is left unchanged when one is returned
	ErrWrongRole         = errors.New("node has the wrong role for this operation")
	ErrAlreadyAssociated = errors.New("virtual node already associated with a master")
	ErrNotAssociated     = errors.New("virtual node not associated with this master")
	ErrHasVirtuals       = errors.New("master node still has virtual nodes")
	ErrWriterConflict    = errors.New("master already has a virtual writer")
	ErrNotFound          = errors.New("node not found")

	// Transport errors
	ErrAlreadyConnected = errors.New("node already connected")
	ErrOpenFailed       = errors.New("failed to open transport")
	ErrConfigureFailed  = errors.New("failed to configure transport")
	ErrIOError          = errors.New("transport I/O error")
	ErrLinkClosed       = errors.New("link is closed")

	// Open failure causes
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
)
