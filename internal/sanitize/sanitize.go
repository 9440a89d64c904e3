// Package sanitize implements the validation-plus-escaping discipline used
// anywhere a PostgreSQL identifier must be interpolated into SQL text:
// DDL targets, savepoint names. Identifiers are never bound as parameters
// like ordinary values, so this package is the one place in the gateway
// that builds a safe SQL token out of untrusted input.
package sanitize

import (
	"strings"

	"github.com/kansuler/pggateway/internal/gatewayerr"
)

// maxIdentifierBytes is PostgreSQL's identifier length limit (NAMEDATALEN-1).
const maxIdentifierBytes = 63

// Identifier validates name and returns it as a double-quoted, safely
// escaped SQL token. It rejects names over the length limit, names outside
// the allowed alphabet (letters, digits, underscore; may not start with a
// digit), and dot-separated qualified names — callers needing a schema
// prefix must sanitize each part and join the results themselves. An
// embedded double quote is accepted and doubled in the returned token.
func Identifier(name string) (string, error) {
	if len(name) == 0 {
		return "", gatewayerr.New(gatewayerr.InvalidIdentifier, "identifier must not be empty")
	}
	if len(name) > maxIdentifierBytes {
		return "", gatewayerr.Newf(gatewayerr.InvalidIdentifier,
			"identifier exceeds %d byte limit", maxIdentifierBytes)
	}
	if strings.Contains(name, ".") {
		return "", gatewayerr.New(gatewayerr.InvalidIdentifier,
			"qualified (dot-separated) identifiers are not accepted; sanitize each part separately")
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '"':
			continue
		case c >= '0' && c <= '9':
			if i == 0 {
				return "", gatewayerr.New(gatewayerr.InvalidIdentifier,
					"identifier may not start with a digit")
			}
			continue
		default:
			return "", gatewayerr.Newf(gatewayerr.InvalidIdentifier,
				"identifier contains disallowed character %q", c)
		}
	}

	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`, nil
}
