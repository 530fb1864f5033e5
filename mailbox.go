package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CodeSource yields the verification code Unity mailed to an account.
type CodeSource interface {
	FetchCode(ctx context.Context, email, password string) (string, error)
}

// CommandRunner runs an external program to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct {
	timeout time.Duration
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// CodeFetcher retrieves emailed verification codes through the mailbox
// tool, invoked as `command args... <email> <password> <codeFile>`.
type CodeFetcher struct {
	runner   CommandRunner
	command  string
	args     []string
	codeFile string
	policy   RetryPolicy
	log      *logrus.Entry
}

func NewCodeFetcher(config *Config, log *logrus.Entry) *CodeFetcher {
	f := &CodeFetcher{
		runner:   execRunner{timeout: time.Duration(config.MailboxTimeout) * time.Second},
		command:  config.MailboxCommand,
		args:     config.MailboxArgs,
		codeFile: config.CodeFile,
		log:      log.WithField("component", "mailbox"),
	}
	delay := time.Duration(config.MailboxRetryDelay) * time.Second
	f.policy = RetryPolicy{
		MaxAttempts: config.MailboxRetries + 1,
		Delay:       delay,
		OnRetry: func(attempt int, err error) {
			fmt.Printf(T("mailbox_retrying")+"\n", attempt, config.MailboxRetries+1, delay)
			f.log.WithError(err).WithField("attempt", attempt).Debug("mailbox tool failed")
		},
	}
	return f
}

// FetchCode returns ErrCodeUnavailable once the retry budget is spent.
// The code file is left where the tool wrote it.
func (f *CodeFetcher) FetchCode(ctx context.Context, email, password string) (string, error) {
	code, err := Retry(ctx, f.policy, func(ctx context.Context, attempt int) (string, error) {
		return f.fetchOnce(ctx, email, password)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		f.log.WithError(err).Warn("giving up on mailbox verification code")
		return "", ErrCodeUnavailable
	}
	return code, nil
}

func (f *CodeFetcher) fetchOnce(ctx context.Context, email, password string) (string, error) {
	// A code left by an earlier run must not be mistaken for this one.
	if err := os.Remove(f.codeFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to clear code file: %w", err)
	}

	args := make([]string, 0, len(f.args)+3)
	args = append(args, f.args...)
	args = append(args, email, password, f.codeFile)

	if err := f.runner.Run(ctx, f.command, args...); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.codeFile)
	if err != nil {
		return "", fmt.Errorf("failed to read code file: %w", err)
	}

	code := strings.TrimSpace(string(data))
	if code == "" {
		return "", fmt.Errorf("code file %s is empty", f.codeFile)
	}
	return code, nil
}
