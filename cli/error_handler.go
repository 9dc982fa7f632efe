package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/tui/theme"
)

// ErrorHandler prints user-facing messages for recordsync errors.
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates an error handler writing to out.
func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     out,
	}
}

// Handle prints a message and a hint matching the error code, then returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	t := theme.DefaultTheme
	fail := t.Error.Render(theme.IconError)
	hint := func(format string, args ...interface{}) {
		fmt.Fprintln(h.Out, t.Muted.Render(fmt.Sprintf(format, args...)))
	}

	var syncErr *errors.SyncError
	if !stderrors.As(err, &syncErr) {
		syncErr = nil
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "%s Configuration not found: %v\n", fail, detail(syncErr, "path"))
		hint("Create recordsync.yml or drop --config to use the defaults.")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "%s %v\n", fail, err)
		hint("Check the file with 'recordsync config validate'.")

	case errors.ErrCodeUnknownKind:
		kinds := make([]string, 0, len(records.Types))
		for _, rt := range records.Types {
			kinds = append(kinds, rt.Kind())
		}
		fmt.Fprintf(h.Out, "%s Unknown record kind '%v'\n", fail, detail(syncErr, "kind"))
		hint("Known kinds: %s", strings.Join(kinds, ", "))

	case errors.ErrCodeRecordNotFound:
		fmt.Fprintf(h.Out, "%s No %v with id '%v'\n", fail, detail(syncErr, "recordType"), detail(syncErr, "id"))
		hint("List the available ids with 'recordsync list'.")

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(h.Out, "%s The recordsync daemon is not running\n", fail)
		hint("Start it with 'recordsync daemon start'.")

	case errors.ErrCodeDaemonUnreachable:
		fmt.Fprintf(h.Out, "%s Could not reach the recordsync daemon: %v\n", fail, err)
		hint("Check it with 'recordsync daemon status'.")

	default:
		fmt.Fprintf(h.Out, "%s Error: %v\n", fail, err)
	}

	if h.Verbose && syncErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", syncErr.ToJSON())
	}
	return err
}

func detail(e *errors.SyncError, key string) interface{} {
	if e == nil || e.Details == nil {
		return "?"
	}
	if v, ok := e.Details[key]; ok {
		return v
	}
	return "?"
}
