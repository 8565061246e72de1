// Package shell implements the interactive menu that drives a storage.Client.
//
// A Session runs one operation at a time. Every turn has two phases: reading
// the menu choice and its fields, then running the chosen operation. An
// interrupt while reading ends the session; an interrupt while an operation
// runs cancels only that operation and the menu is shown again.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/andresuchdata/autopo-py/minioctl/internal/storage"
	"github.com/andresuchdata/autopo-py/minioctl/pkg/logger"
)

const menuWidth = 60

var errQuit = errors.New("quit")

// Options tune the session output.
type Options struct {
	// ConsoleURL is suggested when the server has no buckets.
	ConsoleURL string
}

// Session is the menu-driven dispatcher bound to a single client.
type Session struct {
	client     storage.Client
	in         *lineReader
	out        io.Writer
	consoleURL string

	mu      sync.Mutex
	cancel  context.CancelFunc
	pending bool
}

// action is one menu operation with its fields already collected.
type action struct {
	desc string
	run  func(ctx context.Context) error
}

// New binds a session to client, reading choices from in and writing to out.
func New(client storage.Client, in io.Reader, out io.Writer, opts Options) *Session {
	return &Session{
		client:     client,
		in:         newLineReader(in),
		out:        out,
		consoleURL: opts.ConsoleURL,
	}
}

// Run serves the menu until the user exits or interrupts. SIGINT and SIGTERM
// are routed to Interrupt for the lifetime of the call.
func (s *Session) Run(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-sigs:
				s.Interrupt()
			case <-done:
				return
			}
		}
	}()

	return s.serve(ctx)
}

// Interrupt cancels whatever the session is doing right now. Outside of a
// phase the interrupt is kept for the next one.
func (s *Session) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		return
	}
	s.pending = true
}

func (s *Session) beginPhase(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.pending {
		s.pending = false
		cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}
}

func (s *Session) serve(ctx context.Context) error {
	for {
		s.showMenu()

		act, err := s.readAction(ctx)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "\nExiting...")
			break
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				logger.Log.Error().Err(err).Msg("failed to read input")
			}
			fmt.Fprintln(s.out, "\n\nProgram interrupted by user.")
			break
		}
		if act == nil {
			continue
		}

		s.runAction(ctx, act)
	}

	fmt.Fprintln(s.out, "\nDone!")
	return nil
}

func (s *Session) showMenu() {
	rule := strings.Repeat("=", menuWidth)
	fmt.Fprintf(s.out, "\n%s\n", rule)
	fmt.Fprintln(s.out, "MINIO OPERATIONS MENU")
	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out, "1. List buckets")
	fmt.Fprintln(s.out, "2. Create bucket")
	fmt.Fprintln(s.out, "3. Delete bucket")
	fmt.Fprintln(s.out, "4. List objects in a bucket")
	fmt.Fprintln(s.out, "5. Upload file")
	fmt.Fprintln(s.out, "6. Download file")
	fmt.Fprintln(s.out, "7. Read file content (text)")
	fmt.Fprintln(s.out, "8. Exit")
	fmt.Fprintln(s.out, rule)
}

// readAction reads the menu choice and the fields it needs. A nil action
// with a nil error means the input was rejected and the menu is shown again.
func (s *Session) readAction(parent context.Context) (*action, error) {
	ctx, end := s.beginPhase(parent)
	defer end()

	choice, err := s.prompt(ctx, "\nChoose an option (1-8): ")
	if err != nil {
		return nil, err
	}

	switch choice {
	case "1":
		return &action{desc: "listing buckets", run: s.listBuckets}, nil

	case "2":
		bucket, err := s.prompt(ctx, "Bucket name: ")
		if err != nil {
			return nil, err
		}
		if bucket == "" {
			fmt.Fprintln(s.out, "Bucket name cannot be empty.")
			return nil, nil
		}
		return &action{desc: "creating bucket", run: func(ctx context.Context) error {
			return s.createBucket(ctx, bucket)
		}}, nil

	case "3":
		bucket, err := s.prompt(ctx, "Bucket name to delete: ")
		if err != nil {
			return nil, err
		}
		if bucket == "" {
			fmt.Fprintln(s.out, "Bucket name cannot be empty.")
			return nil, nil
		}
		return &action{desc: "deleting bucket", run: func(ctx context.Context) error {
			return s.deleteBucket(ctx, bucket)
		}}, nil

	case "4":
		bucket, err := s.prompt(ctx, "Bucket name: ")
		if err != nil {
			return nil, err
		}
		if bucket == "" {
			fmt.Fprintln(s.out, "Bucket name cannot be empty.")
			return nil, nil
		}
		return &action{desc: "listing objects", run: func(ctx context.Context) error {
			return s.listObjects(ctx, bucket)
		}}, nil

	case "5":
		fields, err := s.promptAll(ctx,
			"Destination bucket: ",
			"Local file path: ",
			"Object name (Enter to use the file name): ",
		)
		if err != nil {
			return nil, err
		}
		bucket, path, key := fields[0], fields[1], fields[2]
		if bucket == "" || path == "" {
			fmt.Fprintln(s.out, "Bucket and file path are required.")
			return nil, nil
		}
		return &action{desc: "uploading", run: func(ctx context.Context) error {
			return s.upload(ctx, bucket, path, key)
		}}, nil

	case "6":
		fields, err := s.promptAll(ctx,
			"Bucket name: ",
			"Object name: ",
			"Local path to save (Enter to use the object name): ",
		)
		if err != nil {
			return nil, err
		}
		bucket, key, path := fields[0], fields[1], fields[2]
		if bucket == "" || key == "" {
			fmt.Fprintln(s.out, "Bucket and object name are required.")
			return nil, nil
		}
		return &action{desc: "downloading", run: func(ctx context.Context) error {
			return s.download(ctx, bucket, key, path)
		}}, nil

	case "7":
		fields, err := s.promptAll(ctx, "Bucket name: ", "Object name: ")
		if err != nil {
			return nil, err
		}
		bucket, key := fields[0], fields[1]
		if bucket == "" || key == "" {
			fmt.Fprintln(s.out, "Bucket and object name are required.")
			return nil, nil
		}
		return &action{desc: "reading file", run: func(ctx context.Context) error {
			return s.readText(ctx, bucket, key)
		}}, nil

	case "8":
		return nil, errQuit

	default:
		fmt.Fprintln(s.out, "Invalid option. Choose between 1-8.")
		return nil, nil
	}
}

func (s *Session) promptAll(ctx context.Context, labels ...string) ([]string, error) {
	answers := make([]string, 0, len(labels))
	for _, label := range labels {
		answer, err := s.prompt(ctx, label)
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

// runAction executes act in its own phase. Errors and panics are reported
// and never leave this function.
func (s *Session) runAction(parent context.Context, act *action) {
	ctx, end := s.beginPhase(parent)
	defer end()

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error().Interface("panic", r).Str("action", act.desc).Msg("action panicked")
			fmt.Fprintf(s.out, "Unexpected error: %v\n", r)
		}
	}()

	if err := act.run(ctx); err != nil {
		s.reportError(act.desc, err)
	}
}

func (s *Session) reportError(desc string, err error) {
	var svcErr *storage.ServiceError
	switch {
	case errors.Is(err, context.Canceled):
		logger.Log.Warn().Str("action", desc).Msg("action interrupted")
		fmt.Fprintln(s.out, "\nOperation interrupted.")
	case errors.As(err, &svcErr):
		logger.Log.Error().Err(err).Str("action", desc).Str("code", svcErr.Code).Msg("storage request failed")
		fmt.Fprintf(s.out, "S3 error while %s: %s\n", desc, svcErr.Error())
	default:
		logger.Log.Error().Stack().Err(err).Str("action", desc).Msg("action failed")
		fmt.Fprintf(s.out, "Unexpected error while %s: %v\n", desc, err)
	}
}
