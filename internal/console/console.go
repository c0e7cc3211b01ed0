// Package console is the line-oriented review surface: it submits the
// intake, shows the review, takes the reviewer's edits and prints the receipt.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/claimreview/internal/render"
	"github.com/ppiankov/claimreview/internal/review"
	"github.com/ppiankov/claimreview/internal/workflow"
)

// ErrAborted is returned when the reviewer quits or input ends before a receipt
var ErrAborted = errors.New("review aborted")

const helpText = `Commands:
  show                          redisplay the claim
  rent <amount>                 set monthly rent (empty to unset)
  benefit <amount>              set maximum benefit (empty to unset)
  tenant <name>                 set tenant name
  address <text>                set property address
  wear <row> normal|beyond|unset
  occupancy <row> yes|no|unset
  analyze                       submit for evaluation
  help                          show this help
  quit                          leave without evaluating
`

// Console drives one session from line input
type Console struct {
	session  *workflow.Session
	renderer *render.Renderer
	in       *bufio.Scanner
	out      io.Writer
}

func New(session *workflow.Session, renderer *render.Renderer, in io.Reader, out io.Writer) *Console {
	return &Console{
		session:  session,
		renderer: renderer,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// Run submits upload, then reads commands until the claim is evaluated.
// It returns the receipt, or ErrAborted if the reviewer leaves first.
func (c *Console) Run(ctx context.Context, upload workflow.Upload) (*workflow.Receipt, error) {
	if err := c.intake(ctx, upload); err != nil {
		return nil, err
	}

	c.show()
	for {
		line, ok := c.prompt("> ")
		if !ok {
			return nil, ErrAborted
		}

		cmd, arg := splitCommand(line)
		switch cmd {
		case "":
			continue
		case "show", "s":
			c.show()
		case "rent":
			c.edit(func(b *review.Buffer) error { b.SetMonthlyRent(arg); return nil })
		case "benefit":
			c.edit(func(b *review.Buffer) error { b.SetMaximumBenefit(arg); return nil })
		case "tenant":
			c.edit(func(b *review.Buffer) error { b.SetTenantName(arg); return nil })
		case "address":
			c.edit(func(b *review.Buffer) error { b.SetPropertyAddress(arg); return nil })
		case "wear":
			c.edit(func(b *review.Buffer) error {
				row, choice, err := rowArgs(arg)
				if err != nil {
					return err
				}
				w, err := review.ParseWear(choice)
				if err != nil {
					return err
				}
				return review.SetRowWear(b, row-1, w)
			})
		case "occupancy", "occ":
			c.edit(func(b *review.Buffer) error {
				row, choice, err := rowArgs(arg)
				if err != nil {
					return err
				}
				o, err := review.ParseOccupancy(choice)
				if err != nil {
					return err
				}
				return review.SetRowOccupancy(b, row-1, o)
			})
		case "analyze", "a":
			if rec, done := c.analyze(ctx); done {
				return rec, nil
			}
		case "help", "?":
			_, _ = io.WriteString(c.out, helpText)
		case "quit", "q", "exit":
			return nil, ErrAborted
		default:
			c.printf("✗ Unknown command %q (type help)\n", cmd)
		}
	}
}

func (c *Console) intake(ctx context.Context, upload workflow.Upload) error {
	for {
		c.printf("Extracting claim %s...\n", upload.PolicyNumber)
		err := c.session.Submit(ctx, upload)
		if err == nil {
			c.printf("✓ Extraction complete\n\n")
			return nil
		}
		if errors.Is(err, workflow.ErrPolicyNumberRequired) || errors.Is(err, workflow.ErrUnknownDocument) {
			c.printf("✗ %s\n", err)
			return err
		}

		c.printf("✗ %s\n", c.session.Notice())
		line, ok := c.prompt("Retry extraction? [y/N] ")
		if !ok || !isYes(line) {
			return err
		}
	}
}

func (c *Console) analyze(ctx context.Context) (*workflow.Receipt, bool) {
	c.printf("Analyzing...\n")
	if err := c.session.Analyze(ctx); err != nil {
		notice := c.session.Notice()
		if notice == "" {
			notice = err.Error()
		}
		c.printf("✗ %s\n", notice)
		return nil, false
	}

	rec, err := c.session.Receipt()
	if err != nil {
		c.printf("✗ %v\n", err)
		return nil, false
	}
	c.printf("✓ Evaluation complete\n\n")
	_ = c.renderer.WriteReceipt(c.out, render.BuildReceipt(rec.Result, rec.Payload))
	return &rec, true
}

func (c *Console) edit(fn func(*review.Buffer) error) {
	buf, err := c.session.Buffer()
	if err != nil {
		c.printf("✗ %v\n", err)
		return
	}
	if err := fn(buf); err != nil {
		c.printf("✗ %v\n", err)
		return
	}
	c.show()
}

func (c *Console) show() {
	buf, err := c.session.Buffer()
	if err != nil {
		c.printf("✗ %v\n", err)
		return
	}
	extracted, _ := c.session.Extracted()
	_ = c.renderer.WriteReview(c.out, render.BuildReview(buf.Payload(), extracted.DocPresence))
	c.printf("\n")
}

func (c *Console) prompt(p string) (string, bool) {
	c.printf("%s", p)
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// splitCommand separates the command word from the rest of the line. The
// rest is passed through untrimmed except for the separating space.
func splitCommand(line string) (string, string) {
	line = strings.TrimLeft(line, " \t")
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(strings.TrimSpace(cmd)), arg
}

func rowArgs(arg string) (int, string, error) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("want <row> <choice>")
	}
	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("row %q is not a number", fields[0])
	}
	return row, fields[1], nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
