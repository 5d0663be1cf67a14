// Package notify delivers best-effort notices to the reviewer of a new request.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hr-request-backend/internal/clock"
	"hr-request-backend/internal/model"
)

var ErrNoContact = errors.New("notify: reviewer has no email address")

// LogNotifier only records the notice; used when SMTP is not configured.
type LogNotifier struct {
	logger *slog.Logger
	loc    *time.Location
}

func NewLogNotifier(logger *slog.Logger, loc *time.Location) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, loc: loc}
}

func (n *LogNotifier) NotifyReviewer(ctx context.Context, reviewer model.Employee, req model.Request) error {
	n.logger.InfoContext(ctx, "reviewer notified",
		slog.String("reviewer", reviewer.Empid),
		slog.Uint64("request_id", uint64(req.ID)),
		slog.String("empid", req.Empid),
		slog.String("kind", string(req.Kind)),
		slog.String("interval", clock.FormatInterval(req.FromTs, req.ToTs, n.loc)))
	return nil
}

func subject(req model.Request) string {
	return fmt.Sprintf("New %s request #%d from %s", req.Kind, req.ID, req.Empid)
}

func body(reviewer model.Employee, req model.Request, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", reviewer.Name)
	fmt.Fprintf(&b, "Employee %s submitted a %s request waiting for your decision.\n\n", req.Empid, req.Kind)
	fmt.Fprintf(&b, "Type: %s\n", req.TypeLabel)
	fmt.Fprintf(&b, "When: %s\n", clock.FormatInterval(req.FromTs, req.ToTs, loc))
	if req.Kind == model.KindLeave {
		fmt.Fprintf(&b, "Working days: %d\n", req.BusinessDays)
	}
	fmt.Fprintf(&b, "Reason: %s\n", req.Reason)
	return b.String()
}
