package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// affirmative answers accepted by confirmation prompts
var yesAnswers = map[string]struct{}{
	"s":   {},
	"sim": {},
	"y":   {},
	"yes": {},
}

type lineResult struct {
	text string
	err  error
}

// lineReader turns a blocking io.Reader into lines that can be awaited
// together with a context. Its scanner goroutine is never stopped: once the
// session returns it stays blocked on the next line until the process exits.
type lineReader struct {
	src   io.Reader
	once  sync.Once
	lines chan lineResult
}

func newLineReader(src io.Reader) *lineReader {
	return &lineReader{
		src:   src,
		lines: make(chan lineResult, 1),
	}
}

func (l *lineReader) start() {
	go func() {
		defer close(l.lines)

		scanner := bufio.NewScanner(l.src)
		for scanner.Scan() {
			l.lines <- lineResult{text: scanner.Text()}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		l.lines <- lineResult{err: err}
	}()
}

// ReadLine blocks until a line arrives or ctx is done.
func (l *lineReader) ReadLine(ctx context.Context) (string, error) {
	l.once.Do(l.start)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return res.text, res.err
	}
}

// prompt prints label and returns the trimmed answer.
func (s *Session) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := s.in.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question. Anything that is not an affirmative token declines.
func (s *Session) confirm(ctx context.Context, question string) (bool, error) {
	answer, err := s.prompt(ctx, question+" (y/n): ")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func isYes(answer string) bool {
	_, ok := yesAnswers[strings.ToLower(strings.TrimSpace(answer))]
	return ok
}
