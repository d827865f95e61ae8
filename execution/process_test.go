package execution

import (
	"codeshare/errors"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func shellExecutor(opts ...Option) *ProcessExecutor {
	opts = append([]Option{WithCommand("shell", Command{Program: "sh", Extension: ".sh"})}, opts...)
	return NewProcessExecutor(slog.Default(), opts...)
}

func TestProcessExecutor_Runs_Document(t *testing.T) {
	req := require.New(t)
	executor := shellExecutor()

	result, err := executor.Execute(context.Background(), "S1", "echo hello\necho oops >&2\n", "shell")

	req.NoError(err)
	req.Equal(0, result.ExitStatus)
	req.Contains(result.Output, "hello\n")
	req.Contains(result.Output, "oops\n")
	req.Positive(result.Duration)
}

func TestProcessExecutor_Non_Zero_Exit_Is_A_Result(t *testing.T) {
	req := require.New(t)

	result, err := shellExecutor().Execute(context.Background(), "S1", "exit 3\n", "shell")

	req.NoError(err)
	req.Equal(3, result.ExitStatus)
}

func TestProcessExecutor_Timeout(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := shellExecutor().Execute(ctx, "S1", "sleep 5\n", "shell")

	req.ErrorIs(err, context.DeadlineExceeded)
	req.Equal(-1, result.ExitStatus)
	req.Less(time.Since(start), 3*time.Second)
}

func TestProcessExecutor_Truncates_Output(t *testing.T) {
	req := require.New(t)
	executor := shellExecutor(WithMaxOutput(10))

	result, err := executor.Execute(context.Background(), "S1", "echo "+strings.Repeat("a", 100)+"\n", "shell")

	req.NoError(err)
	req.Equal(strings.Repeat("a", 10)+"\n[output truncated]", result.Output)
}

func TestProcessExecutor_Unsupported_Language(t *testing.T) {
	req := require.New(t)

	_, err := shellExecutor().Execute(context.Background(), "S1", "whatever", "cobol")

	req.ErrorIs(err, errors.ErrUnsupportedLanguage)
}
