package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Входные данные
	InMissingInput   Code = 1000
	InMalformedInput Code = 1001
	InUnknownStep    Code = 1002
	InUnknownMessage Code = 1003
	InUnknownFormat  Code = 1004

	// Согласованность трасс и путей
	ConStackUnderflow Code = 2001
	ConReturnMismatch Code = 2002
	ConPathMixing     Code = 2003
	ConRootMismatch   Code = 2004

	// Внешние инструменты
	ToolFailure  Code = 3001
	ToolNotFound Code = 3002

	// Таблица символов
	SymDuplicate Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:       "Unknown error",
	InMissingInput:    "Optional input not found",
	InMalformedInput:  "Malformed verifier output",
	InUnknownStep:     "Unknown trace step kind",
	InUnknownMessage:  "Unknown verifier message kind",
	InUnknownFormat:   "Unrecognized input format",
	ConStackUnderflow: "Function return without a matching call",
	ConReturnMismatch: "Function return does not match the open call",
	ConPathMixing:     "Absolute and relative paths mixed in one batch",
	ConRootMismatch:   "Source dumps disagree on the source root",
	ToolFailure:       "External command failed",
	ToolNotFound:      "External command not found",
	SymDuplicate:      "Duplicate symbol definition",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("CON%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TOOL%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SYM%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Severity returns the default severity of the code. Missing inputs and
// duplicate symbols degrade the report; everything else aborts it.
func (c Code) Severity() Severity {
	switch c {
	case InMissingInput, SymDuplicate:
		return SevInfo
	default:
		return SevError
	}
}
