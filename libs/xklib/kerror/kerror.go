package kerror

import (
	"encoding/hex"
	"fmt"
	"runtime/debug"
	"strings"
)

type Keypair struct {
	K string
	V interface{}
}

// Kerror is the error type thrown (panic) or returned across the codebase.
// Type is a short CamelCase identifier, Msg is the human readable part.
type Kerror struct {
	Type      string
	Msg       string
	Details   []Keypair // slice keeps insertion order
	Stack     string    // only the inner most kerror needs a stack dump
	CausedBy  error     // optional, *Kerror or plain error
	ErrorCode ErrorCode // default EC_UNKNOWN
}

func Create(errType string, msg string) *Kerror {
	return &Kerror{
		Type:      errType,
		Msg:       msg,
		Stack:     GetCallStack(1),
		ErrorCode: EC_UNKNOWN,
	}
}

// Wrap: stack trace is expensive, only ask for it when the cause is not already a Kerror.
func Wrap(err error, errType, msg string, needStack bool) *Kerror {
	ke := &Kerror{
		Type:      errType,
		Msg:       msg,
		CausedBy:  err,
		ErrorCode: EC_UNKNOWN,
	}
	if needStack {
		if _, ok := err.(*Kerror); !ok {
			ke.Stack = GetCallStack(1)
		}
	}
	return ke
}

func (ke *Kerror) Error() string {
	return ke.ShortString()
}

func (ke *Kerror) String() string {
	return ke.FullString()
}

func (ke *Kerror) With(key string, val interface{}) *Kerror {
	ke.Details = append(ke.Details, Keypair{K: key, V: val})
	return ke
}

func (ke *Kerror) WithErrorCode(code ErrorCode) *Kerror {
	ke.ErrorCode = code
	return ke
}

func (ke *Kerror) WithoutStack() *Kerror {
	ke.Stack = ""
	return ke
}

// Unwrap makes Kerror work with errors.Is() / errors.As().
func (ke *Kerror) Unwrap() error {
	return ke.CausedBy
}

func (ke *Kerror) GetType() string {
	return ke.Type
}

// GetDetail returns the first detail value stored under key, nil if absent.
func (ke *Kerror) GetDetail(key string) interface{} {
	for _, item := range ke.Details {
		if item.K == key {
			return item.V
		}
	}
	return nil
}

func (ke *Kerror) GetHttpErrorCode() int {
	return ke.ErrorCode.ToHttpErrorCode()
}

func (ke *Kerror) ShortString() string {
	var b strings.Builder
	ke.toString(&b, false /*withStack*/, false /*withCause*/)
	return b.String()
}

func (ke *Kerror) FullString() string {
	var b strings.Builder
	ke.toString(&b, true /*withStack*/, true /*withCause*/)
	return b.String()
}

func (ke *Kerror) CausedByString() string {
	var b strings.Builder
	ke.causeToString(&b, false /*withStack*/, true /*withCause*/)
	return b.String()
}

func (ke *Kerror) toString(b *strings.Builder, withStack, withCause bool) {
	fmt.Fprintf(b, "%s: %s", ke.Type, ke.Msg)
	for _, item := range ke.Details {
		fmt.Fprintf(b, ", %s=%v", item.K, formatVal(item.V))
	}
	if withStack && ke.Stack != "" {
		fmt.Fprintf(b, ", stack=%s", ke.Stack)
	}
	if withCause && ke.CausedBy != nil {
		b.WriteString(";\n Caused by: ")
		ke.causeToString(b, withStack, withCause)
		b.WriteString("\n")
	}
}

func (ke *Kerror) causeToString(b *strings.Builder, withStack, withCause bool) {
	if ke.CausedBy == nil {
		return
	}
	if cause, ok := ke.CausedBy.(*Kerror); ok {
		cause.toString(b, withStack, withCause)
		return
	}
	b.WriteString(ke.CausedBy.Error())
}

func formatVal(val interface{}) interface{} {
	if bytes, ok := val.([]byte); ok {
		return hex.EncodeToString(bytes)
	}
	return val
}

// GetCallStack returns the current goroutine stack, minus the debug.Stack frames and removeTop callers.
func GetCallStack(removeTop int) string {
	stack := string(debug.Stack())
	split := strings.SplitAfterN(stack, "\n", 6+2*removeTop)
	return split[len(split)-1]
}
