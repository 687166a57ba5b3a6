package entitlement

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidHandle = errors.New("invalid_handle")
	ErrNotFound      = errors.New("account_not_found")
)

const schemaRemediation = "The accounts table is older than this build (missing the badges column). " +
	"Run `linkhub-ops migrate` against the database, then retry the command."

// SchemaError is returned when the store rejects a query because its shape is
// older than the code expects. It needs operator action, not a retry.
type SchemaError struct {
	Remediation string
	Err         error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema outdated: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func IsSchemaOutdated(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
