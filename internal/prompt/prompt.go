// Package prompt asks the user for capture settings through zenity dialogs.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/pairomaniac/capture-stream/internal/logging"
)

// ErrCancelled is returned when the user dismisses a dialog.
var ErrCancelled = errors.New("prompt cancelled")

// Field is one combo box of a form. Values[0] is the preselected choice.
type Field struct {
	Label  string
	Values []string
}

// Prompter renders forms and lists and returns the user's choices.
type Prompter interface {
	// Form returns one value per field, in field order.
	Form(ctx context.Context, title string, fields []Field) ([]string, error)
	// List returns the chosen item.
	List(ctx context.Context, title, column string, items []string) (string, error)
}

const separator = "|"

// Zenity implements Prompter with the zenity binary.
type Zenity struct {
	binary string
	logger *slog.Logger
}

// NewZenity creates a prompter that runs binary.
func NewZenity(binary string) *Zenity {
	if binary == "" {
		binary = "zenity"
	}
	return &Zenity{
		binary: binary,
		logger: logging.GetLogger("prompt"),
	}
}

// Form shows a zenity form with one combo per field. An empty answer for a
// field falls back to its first value.
func (z *Zenity) Form(ctx context.Context, title string, fields []Field) ([]string, error) {
	args := []string{"--forms", "--title=" + title, "--text=" + title, "--separator=" + separator}
	for _, f := range fields {
		args = append(args, "--add-combo="+f.Label, "--combo-values="+strings.Join(f.Values, separator))
	}

	out, err := z.run(ctx, args)
	if err != nil {
		return nil, err
	}

	answers := strings.Split(out, separator)
	values := make([]string, len(fields))
	for i, f := range fields {
		if i < len(answers) {
			values[i] = strings.TrimSpace(answers[i])
		}
		if values[i] == "" && len(f.Values) > 0 {
			values[i] = f.Values[0]
		}
	}
	z.logger.Debug("Form answered", "title", title, "values", values)
	return values, nil
}

// List shows a single-column zenity list. An empty answer selects the
// first item.
func (z *Zenity) List(ctx context.Context, title, column string, items []string) (string, error) {
	args := []string{"--list", "--title=" + title, "--text=" + title, "--column=" + column}
	args = append(args, items...)

	out, err := z.run(ctx, args)
	if err != nil {
		return "", err
	}
	choice := strings.TrimSpace(out)
	if choice == "" && len(items) > 0 {
		choice = items[0]
	}
	z.logger.Debug("List answered", "title", title, "choice", choice)
	return choice, nil
}

func (z *Zenity) run(ctx context.Context, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, z.binary, args...).Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("%s: %w", z.binary, err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}
