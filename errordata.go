// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package slsagent

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/pkg/errors"
)

const (
	// NotAnErrorType is reported as the exception type of panics whose
	// value does not implement error.
	NotAnErrorType = "NotAnErrorType"

	maxMessageBytes  = 3200
	maxIDMessageRune = 200
	maxFrames        = 64
	contextLines     = 5
)

// ErrorData describes the error observed during an invocation. Every
// field is nil when the invocation succeeded.
type ErrorData struct {
	Culprit             *string `json:"errorCulprit"`
	ExceptionMessage    *string `json:"errorExceptionMessage"`
	ExceptionStacktrace *string `json:"errorExceptionStacktrace"`
	ExceptionType       *string `json:"errorExceptionType"`
	ID                  *string `json:"errorId"`
	Fatal               *bool   `json:"errorFatal"`
}

func (d ErrorData) tags() map[string]any {
	return map[string]any{
		"errorCulprit":             d.Culprit,
		"errorExceptionMessage":    d.ExceptionMessage,
		"errorExceptionStacktrace": d.ExceptionStacktrace,
		"errorExceptionType":       d.ExceptionType,
		"errorId":                  d.ID,
		"errorFatal":               d.Fatal,
	}
}

// Frame is a single entry of errorExceptionStacktrace.
type Frame struct {
	Filename     string   `json:"filename"`
	Lineno       int      `json:"lineno"`
	Function     string   `json:"function"`
	LibraryFrame bool     `json:"library_frame"`
	AbsPath      string   `json:"abs_path"`
	PreContext   []string `json:"pre_context"`
	ContextLine  string   `json:"context_line"`
	PostContext  []string `json:"post_context"`
}

func (f Frame) culprit() string {
	return fmt.Sprintf("%s (%s)", f.Function, f.Filename)
}

// errorDataFromError describes err. The frames of a github.com/pkg/errors
// stack trace are preferred over the given frames. When neither exist the
// culprit falls back to fallback.
func errorDataFromError(err error, fatal bool, frames []Frame, fallback string) ErrorData {
	if st := innermostStackTrace(err); st != nil {
		frames = framesFromStackTrace(st)
	}
	return newErrorData(fmt.Sprintf("%T", err), err.Error(), fatal, frames, fallback)
}

// errorDataFromPanic describes a recovered panic value.
func errorDataFromPanic(v any, frames []Frame, fallback string) ErrorData {
	if err, ok := v.(error); ok {
		return errorDataFromError(err, true, frames, fallback)
	}
	return newErrorData(NotAnErrorType, fmt.Sprint(v), true, frames, fallback)
}

func newErrorData(typ, msg string, fatal bool, frames []Frame, fallback string) ErrorData {
	culprit := fallback
	if len(frames) > 0 {
		culprit = frames[0].culprit()
	}
	if frames == nil {
		frames = []Frame{}
	}
	stack, err := json.Marshal(frames)
	if err != nil {
		stack = []byte("[]")
	}

	return ErrorData{
		Culprit:             ref(culprit),
		ExceptionMessage:    ref(truncateBytes(msg, maxMessageBytes)),
		ExceptionStacktrace: ref(string(stack)),
		ExceptionType:       ref(typ),
		ID:                  ref(typ + "!$" + truncateRunes(msg, maxIDMessageRune)),
		Fatal:               ref(fatal),
	}
}

func ref[T any](v T) *T {
	return &v
}

func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// innermostStackTrace returns the stack trace closest to where the
// error was created.
func innermostStackTrace(err error) pkgerrors.StackTrace {
	var st pkgerrors.StackTrace
	for err != nil {
		if t, ok := err.(stackTracer); ok {
			st = t.StackTrace()
		}
		err = errors.Unwrap(err)
	}
	return st
}

func framesFromStackTrace(st pkgerrors.StackTrace) []Frame {
	pcs := make([]uintptr, 0, len(st))
	for _, f := range st {
		pcs = append(pcs, uintptr(f))
	}
	return framesFromPCs(pcs)
}

// callerFrames returns the stack of the caller, skipping skip frames
// above the caller of callerFrames.
func callerFrames(skip int) []Frame {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	return framesFromPCs(pcs[:n])
}

// panicFrames must be called from a deferred func while panicking. It
// returns the stack starting at the frame which panicked.
func panicFrames() []Frame {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []runtime.Frame
	panicking := false
	for {
		f, more := frames.Next()
		switch {
		case f.Function == "runtime.gopanic":
			panicking = true
		case panicking && len(out) == 0 && isRuntimeFrame(f):
		case panicking:
			out = append(out, f)
		}
		if !more {
			break
		}
	}
	return toFrames(out)
}

func framesFromPCs(pcs []uintptr) []Frame {
	if len(pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs)
	var out []runtime.Frame
	for {
		f, more := frames.Next()
		if f.Function != "" {
			out = append(out, f)
		}
		if !more {
			break
		}
	}
	return toFrames(out)
}

func toFrames(rfs []runtime.Frame) []Frame {
	if len(rfs) > maxFrames {
		rfs = rfs[:maxFrames]
	}
	frames := make([]Frame, 0, len(rfs))
	for _, rf := range rfs {
		pre, line, post := sourceContext(rf.File, rf.Line)
		frames = append(frames, Frame{
			Filename:     filepath.Base(rf.File),
			Lineno:       rf.Line,
			Function:     rf.Function,
			LibraryFrame: isLibraryFrame(rf),
			AbsPath:      rf.File,
			PreContext:   pre,
			ContextLine:  line,
			PostContext:  post,
		})
	}
	return frames
}

func isRuntimeFrame(f runtime.Frame) bool {
	return strings.HasPrefix(f.Function, "runtime.") || strings.HasPrefix(f.Function, "internal/runtime/")
}

func isLibraryFrame(f runtime.Frame) bool {
	if isRuntimeFrame(f) || strings.HasPrefix(f.Function, "reflect.") {
		return true
	}
	return strings.Contains(filepath.ToSlash(f.File), "/pkg/mod/")
}

// sourceContext reads the lines surrounding line from file. Deployed
// functions rarely ship their sources so an unreadable file is normal.
func sourceContext(file string, line int) (pre []string, ctxLine string, post []string) {
	pre, post = []string{}, []string{}
	f, err := os.Open(file)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan() && n <= line+contextLines; n++ {
		switch {
		case n < line-contextLines:
		case n < line:
			pre = append(pre, sc.Text())
		case n == line:
			ctxLine = sc.Text()
		default:
			post = append(post, sc.Text())
		}
	}
	return
}
