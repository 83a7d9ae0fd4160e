package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// Diagnose renders err as the trace written to a run's stderr. The result
// always ends with a newline.
func Diagnose(err error) string {
	if err == nil {
		return ""
	}

	var (
		ex       *goja.Exception
		syntax   *goja.CompilerSyntaxError
		panicErr *PanicError
		text     string
	)
	switch {
	case errors.As(err, &ex):
		text = ex.String()
	case errors.As(err, &syntax):
		text = syntax.Error()
		if !strings.HasPrefix(text, "SyntaxError") {
			text = "SyntaxError: " + text
		}
	case errors.As(err, &panicErr):
		text = fmt.Sprintf("%s\n\n%s", panicErr.Error(), panicErr.Stack)
	default:
		text = err.Error()
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}
