package facade

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeArgs parses a query argument list supplied in relaxed quoting
// form. Single quotes are accepted and rewritten to strict JSON before
// parsing; non-string elements are re-serialized so the ledger always
// receives string arguments.
func NormalizeArgs(raw string) ([]string, error) {
	raw = strings.ReplaceAll(raw, "'", `"`)
	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	args := make([]string, 0, len(parsed))
	for _, item := range parsed {
		if s, ok := item.(string); ok {
			args = append(args, s)
			continue
		}
		encoded, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode arg: %w", err)
		}
		args = append(args, string(encoded))
	}
	return args, nil
}

// PrepareArgs prefixes the caller's tenant role onto an argument list the
// way the role-scoped query chaincode expects: the role first, then the
// first caller argument.
func PrepareArgs(role string, args []string) []string {
	prepared := []string{role}
	if len(args) > 0 {
		prepared = append(prepared, args[0])
	}
	return prepared
}
