package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Credentials are the identity provider username and password.
type Credentials struct {
	Username string
	Password string
}

// Prompter asks the user for credentials.
type Prompter interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (Credentials, error)

// Credentials calls f(ctx).
func (f PrompterFunc) Credentials(ctx context.Context) (Credentials, error) { return f(ctx) }

// TerminalPrompter reads credentials from a terminal without echoing the password.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Credentials prompts for the username and password.
func (p *TerminalPrompter) Credentials(ctx context.Context) (Credentials, error) {
	fmt.Fprintln(p.Out, "This tool requires authentication. Please provide your EASE credentials.")
	fmt.Fprint(p.Out, "EASE Username: ")

	reader := bufio.NewReader(p.In)
	username, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return Credentials{}, fmt.Errorf("read username: %w", err)
	}

	fmt.Fprint(p.Out, "     Password: ")
	var password string
	fd := int(p.In.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	} else {
		password, err = reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return Credentials{}, fmt.Errorf("read password: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	return Credentials{
		Username: strings.TrimSpace(username),
		Password: strings.TrimRight(password, "\r\n"),
	}, nil
}
