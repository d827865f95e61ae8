// Package execution runs a session document as a local process. It is the
// optional code runner behind execute_request and trusts the host it runs on.
package execution

import (
	"bytes"
	"codeshare/domain"
	"codeshare/errors"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/samber/lo"
)

// Command runs a source file: Program Args... <file with Extension>.
type Command struct {
	Program   string
	Args      []string
	Extension string
}

func DefaultCommands() map[string]Command {
	return map[string]Command{
		"python":     {Program: "python3", Extension: ".py"},
		"javascript": {Program: "node", Extension: ".js"},
		"go":         {Program: "go", Args: []string{"run"}, Extension: ".go"},
	}
}

type Option func(*ProcessExecutor)

func WithCommand(language string, command Command) Option {
	return func(e *ProcessExecutor) { e.commands[language] = command }
}

func WithMaxOutput(n int) Option {
	return func(e *ProcessExecutor) { e.maxOutput = n }
}

// ProcessExecutor writes the document to a scratch directory and runs the
// interpreter of its language on it. The caller bounds the run with ctx.
type ProcessExecutor struct {
	log       *slog.Logger
	commands  map[string]Command
	maxOutput int
}

func NewProcessExecutor(log *slog.Logger, opts ...Option) *ProcessExecutor {
	e := &ProcessExecutor{log: log, commands: DefaultCommands(), maxOutput: 64 * 1024}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ProcessExecutor) Languages() []string {
	return lo.Keys(e.commands)
}

// Execute returns the combined output and the exit status. A non-zero exit is
// a result, not an error. The error is set when the process could not run to
// completion, the result then carries whatever output was produced.
func (e *ProcessExecutor) Execute(ctx context.Context, sessionID domain.SessionID, content, language string) (domain.ExecutionResult, error) {
	command, ok := e.commands[language]
	if !ok {
		return domain.ExecutionResult{ExitStatus: -1}, fmt.Errorf("%w: %q", errors.ErrUnsupportedLanguage, language)
	}

	dir, err := os.MkdirTemp("", "codeshare-run-")
	if err != nil {
		return domain.ExecutionResult{ExitStatus: -1}, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	source := filepath.Join(dir, "main"+command.Extension)
	if err := os.WriteFile(source, []byte(content), 0o600); err != nil {
		return domain.ExecutionResult{ExitStatus: -1}, err
	}

	cmd := exec.CommandContext(ctx, command.Program, append(append([]string(nil), command.Args...), source)...)
	cmd.Dir = dir
	// children may keep the pipes open after the interpreter is killed
	cmd.WaitDelay = 100 * time.Millisecond
	setPlatformSpecificAttrs(cmd)
	output := &limitedBuffer{limit: e.maxOutput}
	cmd.Stdout = output
	cmd.Stderr = output

	e.log.Debug("Running document", "session_id", sessionID, "language", language, "command", cmd.String())
	start := time.Now()
	err = cmd.Run()
	result := domain.ExecutionResult{
		Output:   output.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitStatus = -1
		return result, ctxErr
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitStatus = exitErr.ExitCode()
	default:
		result.ExitStatus = -1
		return result, err
	}
	return result, nil
}

// limitedBuffer keeps the first limit bytes and notes that the rest was cut.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room < len(p) {
		b.buf.Write(p[:max(room, 0)])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
