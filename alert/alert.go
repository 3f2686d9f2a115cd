// Package alert delivers the run summary. The mock sink prints it; the
// Pub/Sub sink publishes it for whatever chat relay subscribes to the topic.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/menu_recon/appctx"
	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

type Sink interface {
	Send(ctx context.Context, message string) error
}

// StdoutSink is the mock alert. It frames the message so it stands out among
// the log lines when both go to a terminal.
type StdoutSink struct {
	w io.Writer
}

func NewStdoutSink(w io.Writer) *StdoutSink {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutSink{w: w}
}

func (s *StdoutSink) Send(ctx context.Context, message string) error {
	if _, err := fmt.Fprintf(s.w, "\n=== MOCK ALERT ===\n%s\n==================\n\n", message); err != nil {
		return fmt.Errorf("%w: write mock alert: %w", utils.ErrorAlert, err)
	}
	return nil
}

// LogSink records the alert text in the structured log.
type LogSink struct {
	logg *logrus.Logger
}

func NewLogSink(logg *logrus.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Send(ctx context.Context, message string) error {
	entry := s.logg.WithField("alert", message)
	if runId, ok := appctx.GetRunId(ctx); ok {
		entry = entry.WithField("run_id", runId)
	}
	entry.Info("alert sent")
	return nil
}

// Fanout sends to every sink, even after one fails, and joins the failures.
type Fanout []Sink

func NewFanout(sinks ...Sink) Fanout {
	return Fanout(sinks)
}

func (f Fanout) Send(ctx context.Context, message string) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	if errors.Is(err, utils.ErrorAlert) {
		return err
	}
	return fmt.Errorf("%w: %w", utils.ErrorAlert, err)
}
