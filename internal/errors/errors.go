package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// BuildScriptInvalid indicates a build script could not be parsed
	BuildScriptInvalid ErrorCode = "BUILD_SCRIPT_INVALID"
	// ModuleNotFound indicates a module name did not resolve
	ModuleNotFound ErrorCode = "MODULE_NOT_FOUND"
	// UnknownProjectReference indicates project(":x") names a module that does not exist
	UnknownProjectReference ErrorCode = "UNKNOWN_PROJECT_REFERENCE"
	// ModuleCycle indicates the module graph is cyclic where an order was required
	ModuleCycle ErrorCode = "MODULE_CYCLE"
	// InvalidPattern indicates a malformed exclusion glob
	InvalidPattern ErrorCode = "INVALID_PATTERN"
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ScanTimeout indicates source scanning exceeded its time budget
	ScanTimeout ErrorCode = "SCAN_TIMEOUT"
	// StorageError indicates the history database failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ModgraphError is an error with a stable code, message and suggestions
type ModgraphError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// NewModgraphError creates a new ModgraphError. When fixes is nil the
// default fixes registered for the code are attached.
func NewModgraphError(code ErrorCode, message string, cause error, fixes []FixAction) *ModgraphError {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &ModgraphError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Errorf creates a ModgraphError with a formatted message and no cause
func Errorf(code ErrorCode, format string, args ...interface{}) *ModgraphError {
	return NewModgraphError(code, fmt.Sprintf(format, args...), nil, nil)
}

// Wrap creates a ModgraphError around cause
func Wrap(code ErrorCode, cause error, message string) *ModgraphError {
	return NewModgraphError(code, message, cause, nil)
}

// Error implements the error interface
func (e *ModgraphError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ModgraphError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ModgraphError) WithDetails(details interface{}) *ModgraphError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        EditFile,
			Path:        ".modgraph/config.json",
			Description: "Fix or remove the invalid configuration value",
		},
		{
			Type:        RunCommand,
			Command:     "modgraph init --force",
			Description: "Regenerate the default configuration",
		},
	},
	UnknownProjectReference: {
		{
			Type:        RunCommand,
			Command:     "modgraph modules",
			Safe:        true,
			Description: "List the modules known to this build",
		},
	},
	ModuleNotFound: {
		{
			Type:        RunCommand,
			Command:     "modgraph modules",
			Safe:        true,
			Description: "List the modules known to this build",
		},
	},
	InvalidPattern: {
		{
			Type:        RunCommand,
			Command:     "modgraph exclusions ${module}",
			Safe:        true,
			Description: "Inspect what each exclusion pattern matches",
		},
	},
	ScanTimeout: {
		{
			Type:        EditFile,
			Path:        ".modgraph/config.json",
			Description: "Raise scan.scanTimeoutMs",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}

// CodeOf returns the code of the first ModgraphError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var me *ModgraphError
	if stderrors.As(err, &me) {
		return me.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	var me *ModgraphError
	return stderrors.As(err, &me) && me.Code == code
}
