// Package extract runs per-file extractor programs and parses their
// structured output into Records.
//
// Extractor contract: the command template's {input} placeholder is
// replaced with the absolute source path and the command is run through
// the shell with a bounded timeout. On exit 0 it must print one YAML or
// JSON document (per the collection's output format) to stdout carrying at
// least one of title, tags, content; other top-level keys are preserved as
// opaque custom metadata. Every failure mode is a typed, recoverable
// per-file error.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/errors"
)

// DefaultTimeout bounds a single extractor subprocess.
const DefaultTimeout = 2 * time.Minute

// maxStderrDetail caps how much extractor stderr is carried in errors.
const maxStderrDetail = 512

// Dispatcher resolves files to extractor commands and executes them.
// It spawns exactly one subprocess per Extract call and never retries;
// transient extractor failures surface in the report instead of being
// masked.
type Dispatcher struct {
	Timeout time.Duration
}

// NewDispatcher returns a Dispatcher with the default timeout.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{Timeout: DefaultTimeout}
}

// Extract runs the extractor for relpath within col and returns the parsed
// record. All returned errors are *errors.SearchError with an extraction
// code; callers collect them into the index report rather than aborting.
func (d *Dispatcher) Extract(ctx context.Context, col *config.Collection, relpath string) (*Record, error) {
	command, ok := col.Config.ResolveExtractor(relpath)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNoExtractor,
			"no extractor configured for %s", relpath)
	}

	abs := col.AbsPath(relpath)
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot stat %s", relpath), err)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdline := strings.ReplaceAll(command, config.InputPlaceholder, shellQuote(abs))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "sh", "-c", cmdline)
	cmd.Dir = col.Root
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// The extractor gets its own process group and the deadline signals
	// the whole group. Killing only the shell would leave children alive
	// holding the output pipes, and Run would block until they exit.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	slog.Debug("extractor_run",
		slog.String("path", relpath),
		slog.String("command", cmdline),
		slog.Duration("duration", time.Since(start)))

	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, errors.Newf(errors.ErrCodeExtractorTimeout,
				"extractor for %s killed after %s", relpath, timeout)
		}
		exitCode := -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, errors.New(errors.ErrCodeExtractorFailed,
			fmt.Sprintf("extractor for %s exited %d", relpath, exitCode), runErr).
			WithDetail("exit_code", fmt.Sprintf("%d", exitCode)).
			WithDetail("stderr", truncate(stderr.String(), maxStderrDetail))
	}

	record, err := parseOutput(stdout.Bytes(), col.Config.Output.Format)
	if err != nil {
		return nil, errors.New(errors.ErrCodeMalformedOutput,
			fmt.Sprintf("extractor output for %s is not valid %s", relpath, col.Config.Output.Format), err)
	}

	record.SourcePath = relpath
	if !record.Indexable() {
		return nil, errors.Newf(errors.ErrCodeEmptyRecord,
			"extractor output for %s has none of title, tags, content", relpath)
	}

	record.ExtractedAt = time.Now().UTC()
	record.Fingerprint = Fingerprint(info)
	return record, nil
}

// parseOutput decodes one structured document into a Record. Unknown
// top-level keys land in Custom verbatim.
func parseOutput(out []byte, format config.Format) (*Record, error) {
	raw := make(map[string]any)
	switch format {
	case config.FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(out))
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	default: // yaml
		if err := yaml.Unmarshal(out, &raw); err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, fmt.Errorf("empty document")
		}
	}

	record := &Record{}
	for key, value := range raw {
		switch key {
		case "title":
			if s, ok := value.(string); ok {
				record.Title = s
			}
		case "content":
			if s, ok := value.(string); ok {
				record.Content = s
			}
		case "tags":
			record.Tags = toStringSlice(value)
		default:
			if record.Custom == nil {
				record.Custom = make(map[string]any)
			}
			record.Custom[key] = value
		}
	}
	return record, nil
}

// toStringSlice coerces a decoded tags value into a string slice,
// silently dropping non-string members.
func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, isStr := v.(string); isStr && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// shellQuote single-quotes a path for safe interpolation into the
// sh -c command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
