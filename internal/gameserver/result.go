package gameserver

import (
	"fmt"

	"github.com/cory-johannsen/realm/internal/game/character"
)

// Code classifies the outcome of an operation.
type Code string

const (
	CodeOK Code = "ok"
	// CodeInvalid rejects a request that can never succeed as sent:
	// missing entity, wrong zone, level, prerequisites, full inventory.
	CodeInvalid Code = "invalid"
	// CodeConflict rejects a request that lost a race; it may be retried.
	CodeConflict Code = "conflict"
	// CodeUnavailable reports an infrastructure failure.
	CodeUnavailable Code = "unavailable"
)

// Result is embedded in every operation result. Domain failures are reported
// here with Success false and never as a Go error.
type Result struct {
	Success bool   `json:"success" msgpack:"success"`
	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
	Code    Code   `json:"code" msgpack:"code"`
}

func success(format string, args ...any) Result {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return Result{Success: true, Message: msg, Code: CodeOK}
}

func reject(code Code, format string, args ...any) Result {
	return Result{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CharacterResult carries a character document.
type CharacterResult struct {
	Result
	Character *character.Character `json:"character,omitempty"`
}
