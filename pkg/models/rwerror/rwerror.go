package rwerror

import (
	"errors"
	"fmt"
)

const (
	RW_UNEXPECTED         = "RWU"
	RW_INVALID_CONFIG     = "RWC"
	RW_UNKNOWN_KIND       = "RWK"
	RW_NOT_FOUND          = "RWN"
	RW_UNKNOWN_DATASOURCE = "RWD"
	RW_EXECUTION_ERROR    = "RWE"
)

var existingErrorCodeMap = map[string]string{
	RW_INVALID_CONFIG:     "Invalid configuration",
	RW_UNKNOWN_KIND:       "Unknown configuration kind",
	RW_NOT_FOUND:          "Object not found",
	RW_UNKNOWN_DATASOURCE: "Unknown data source",
	RW_EXECUTION_ERROR:    "Execution error",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &RwError{}

type RwError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *RwError {
	return &RwError{
		Err:       errors.New(errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *RwError {
	return &RwError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func (er *RwError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *RwError) Unwrap() error {
	return er.Err
}

// Is reports whether any error in err's chain is an RwError with the given code.
func Is(err error, errorCode string) bool {
	var rerr *RwError
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.ErrorCode == errorCode
}
