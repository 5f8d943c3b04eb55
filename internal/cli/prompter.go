package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// ErrInputTerminated is returned when input ends before an answer is given.
var ErrInputTerminated = errors.New("input terminated")

// Prompter asks the user questions on a terminal.
type Prompter struct {
	writer io.Writer
	reader *NonBlockingReader
}

// NewCLIPrompter creates a prompter. Nil arguments default to stdin and stdout.
func NewCLIPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{reader: NewNonBlockingReader(reader), writer: writer}
}

// Confirm asks a yes/no question. An empty answer means no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	choice, err := p.Choose(ctx, question+" [y/N]", []string{"y", "yes", "n", "no", ""})
	if err != nil {
		return false, err
	}
	return choice == "y" || choice == "yes", nil
}

// Choose asks until the answer is one of choices (case-insensitive).
func (p *Prompter) Choose(ctx context.Context, prompt string, choices []string) (string, error) {
	for {
		if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrInputTerminated
			}
			return "", err
		}

		choice := strings.ToLower(input)
		if slices.Contains(choices, choice) {
			return choice, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

// Ask reads a free-form answer, returning def when the answer is empty.
func (p *Prompter) Ask(ctx context.Context, prompt, def string) (string, error) {
	label := prompt
	if def != "" {
		label = fmt.Sprintf("%s [%s]", prompt, def)
	}
	if _, err := fmt.Fprintf(p.writer, "%s ", FormatPrompt(label)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	input, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInputTerminated
		}
		return "", err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}
