package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/coopco/dodgem/internal/bump"
)

// prompter asks questions on the terminal. Secrets are read without echo
// when the input is a terminal.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	secret func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.secret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
	return p
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) askSecret(label string) (string, error) {
	if p.secret == nil {
		return p.ask(label)
	}
	fmt.Fprint(p.out, label)
	return p.secret()
}

// askTarget returns the bump target. An empty answer keeps fallback.
func (p *prompter) askTarget(fallback bump.Target) (bump.Target, error) {
	fmt.Fprintln(p.out, "Bump target:")
	fmt.Fprintln(p.out, "  1) All trades")
	fmt.Fprintln(p.out, "  2) Oldest trade")
	label := "Choose [1]: "
	if fallback == bump.TargetOldest {
		label = "Choose [2]: "
	}
	for {
		answer, err := p.ask(label)
		if err != nil {
			return 0, err
		}
		switch strings.ToLower(answer) {
		case "":
			return fallback, nil
		case "1", "all":
			return bump.TargetAll, nil
		case "2", "oldest":
			return bump.TargetOldest, nil
		}
		fmt.Fprintln(p.out, "Please choose 1 or 2")
	}
}

// askInterval returns the repeat interval in minutes. An empty answer
// keeps fallback.
func (p *prompter) askInterval(fallback float64) (float64, error) {
	label := fmt.Sprintf("Repeat interval (minutes) [%s]: ", strconv.FormatFloat(fallback, 'f', -1, 64))
	for {
		answer, err := p.ask(label)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return fallback, nil
		}
		if minutes, err := parseMinutes(answer); err == nil {
			return minutes, nil
		}
		fmt.Fprintln(p.out, "Please enter a valid number")
	}
}

// parseMinutes accepts a number or decimal of minutes such as "15" or "0.5".
func parseMinutes(s string) (float64, error) {
	if _, err := bump.ParseInterval(s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
