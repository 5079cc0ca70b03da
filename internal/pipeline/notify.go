package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ppiankov/textaudit/internal/model"
	"go.uber.org/zap"
)

// Update is the verdict feedback for one dossier
type Update struct {
	TaskID   string
	Verdict  model.Verdict
	Feedback string
}

// UpdateFromRecord builds the feedback for a review record
func UpdateFromRecord(r *model.ReviewRecord) Update {
	feedback := r.Remarks
	if feedback == "" {
		feedback = "all verified fields match"
	}
	return Update{TaskID: r.Dossier, Verdict: r.Verdict, Feedback: feedback}
}

// Notifier is the verdict feedback channel
type Notifier interface {
	Notify(ctx context.Context, u Update)
}

// ConsoleNotifier prints task updates for an operator watching the run
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier writes updates to out
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// Notify implements Notifier
func (n *ConsoleNotifier) Notify(ctx context.Context, u Update) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fmt.Fprintf(n.out, "\n[任务更新] ID: %s\n", u.TaskID)
	fmt.Fprintf(n.out, "状态: %s\n", u.Verdict.Label())
	fmt.Fprintf(n.out, "反馈: %s\n", u.Feedback)
	fmt.Fprintln(n.out, strings.Repeat("-", 30))
}

// LogNotifier records updates in the structured log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier over logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(ctx context.Context, u Update) {
	n.logger.Info("task update",
		zap.String("task", u.TaskID),
		zap.String("verdict", string(u.Verdict)),
		zap.String("feedback", u.Feedback))
}

// MultiNotifier fans an update out to several notifiers
type MultiNotifier []Notifier

// Notify implements Notifier
func (m MultiNotifier) Notify(ctx context.Context, u Update) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, u)
		}
	}
}
