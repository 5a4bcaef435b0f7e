package step

import "fmt"

// Kind classifies a trace step.
type Kind uint8

const (
	KindInvalid Kind = iota
	VariableAssignment
	ParameterAssignment
	FunctionCall
	FunctionReturn
	Assumption
	Failure
	LocationOnly
)

var kindNames = [...]string{
	KindInvalid:         "invalid",
	VariableAssignment:  "variable-assignment",
	ParameterAssignment: "parameter-assignment",
	FunctionCall:        "function-call",
	FunctionReturn:      "function-return",
	Assumption:          "assumption",
	Failure:             "failure",
	LocationOnly:        "location-only",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k != int(KindInvalid) && name == s {
			return Kind(k), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown step kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k == KindInvalid || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("cannot encode step kind %d", k)
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsAssignment reports whether k carries an Assignment payload.
func (k Kind) IsAssignment() bool {
	return k == VariableAssignment || k == ParameterAssignment
}

// IsFrame reports whether k opens or closes a call frame.
func (k Kind) IsFrame() bool {
	return k == FunctionCall || k == FunctionReturn
}
