// Package console holds the interactive prompts of the command line
// client: the starting balance question and the yes/no confirmation.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"bisky/internal/core"
	"bisky/internal/ledger"
)

const (
	BalanceQuestion = "? What is your balance now"
	BalanceError    = "! Balance must be numeric!"
	balancePrompt   = "$>> "
	confirmPrompt   = "!>> "
)

var (
	warn    = color.New(color.FgRed)
	success = color.New(color.FgGreen)
	ask     = color.New(color.FgCyan)
)

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

var _ ledger.Confirmer = (*Prompter)(nil)

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm asks question and accepts "y" or "Y" as yes. End of input is no.
func (p *Prompter) Confirm(question string) (bool, error) {
	ask.Fprintln(p.out, question)
	fmt.Fprint(p.out, confirmPrompt)
	answer, err := p.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}

// StartingBalance keeps asking until it gets a number, rounded to cents.
func (p *Prompter) StartingBalance() (decimal.Decimal, error) {
	for {
		ask.Fprintln(p.out, BalanceQuestion)
		fmt.Fprint(p.out, balancePrompt)
		answer, err := p.readLine()
		if answer != "" {
			if d, perr := core.ParseAmount(answer); perr == nil {
				return d.Round(2), nil
			}
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("read starting balance: %w", err)
		}
		warn.Fprintln(p.out, BalanceError)
	}
}

// Success prints a confirmation line such as "Added entry.".
func (p *Prompter) Success(msg string) {
	success.Fprintln(p.out, msg)
}

// Notice prints a plain informational line.
func (p *Prompter) Notice(msg string) {
	fmt.Fprintln(p.out, msg)
}

// Warn prints a warning line.
func (p *Prompter) Warn(msg string) {
	warn.Fprintln(p.out, msg)
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	return strings.TrimSpace(line), err
}
