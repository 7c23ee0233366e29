package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/garyjia/travel-report/internal/domain/entity"
	"github.com/garyjia/travel-report/internal/domain/event"
)

// NotificationService emails participants about assignments they were added to
type NotificationService interface {
	// NotifyParticipants sends the assignment details to each user. Users
	// without an email and failed sends are logged and skipped.
	NotifyParticipants(ctx context.Context, assignment *entity.Assignment, userIDs []int64) (int, error)

	// HandleAssignmentEvent is the dispatcher handler for assignment
	// created/updated events. It never returns an error.
	HandleAssignmentEvent(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	assignments port.AssignmentRepository
	users       port.UserRepository
	mailer      port.MailSender
	renderer    port.MarkdownRenderer
	logger      Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	assignments port.AssignmentRepository,
	users port.UserRepository,
	mailer port.MailSender,
	renderer port.MarkdownRenderer,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		assignments: assignments,
		users:       users,
		mailer:      mailer,
		renderer:    renderer,
		logger:      logger,
	}
}

func (s *notificationServiceImpl) HandleAssignmentEvent(ctx context.Context, evt *event.Event) error {
	ids := evt.GetPayloadIDs(event.KeyParticipantIDs)
	if len(ids) == 0 {
		return nil
	}

	assignment, err := s.assignments.GetByID(ctx, evt.AggregateID)
	if err != nil || assignment == nil {
		s.logger.Error("Failed to load assignment for notification",
			"error", err, "assignment_id", evt.AggregateID)
		return nil
	}

	if _, err := s.NotifyParticipants(ctx, assignment, ids); err != nil {
		s.logger.Error("Failed to notify participants", "error", err, "assignment_id", assignment.ID)
	}
	return nil
}

func (s *notificationServiceImpl) NotifyParticipants(ctx context.Context, assignment *entity.Assignment, userIDs []int64) (int, error) {
	users, err := s.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return 0, fmt.Errorf("load participants: %w", err)
	}

	sent := 0
	for _, u := range users {
		if !u.HasEmail() {
			s.logger.Warn("Participant has no email, notification skipped",
				"user_id", u.ID, "assignment_id", assignment.ID)
			continue
		}

		msg := s.buildMessage(assignment, u)
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Error("Failed to send assignment notification",
				"error", err, "user_id", u.ID, "assignment_id", assignment.ID)
			continue
		}
		sent++
	}

	s.logger.Info("Assignment notifications sent",
		"assignment_id", assignment.ID, "sent", sent, "recipients", len(users))
	return sent, nil
}

func (s *notificationServiceImpl) buildMessage(a *entity.Assignment, to *entity.User) port.MailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", to.Name)
	b.WriteString("You have been assigned to a travel assignment.\n\n")
	fmt.Fprintf(&b, "- **Purpose:** %s\n", a.Purpose)
	fmt.Fprintf(&b, "- **Destination:** %s\n", a.Destination)
	fmt.Fprintf(&b, "- **Dates:** %s to %s\n", a.StartDate.Format("2006-01-02"), a.EndDate.Format("2006-01-02"))
	if len(a.Participants) > 0 {
		names := make([]string, 0, len(a.Participants))
		for _, p := range a.Participants {
			names = append(names, p.Name)
		}
		fmt.Fprintf(&b, "- **Participants:** %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\nPlease file your travel report once the trip is complete.\n")

	text := b.String()
	return port.MailMessage{
		To:       to.Email,
		Subject:  "Travel assignment: " + a.Destination,
		HTMLBody: s.renderer.Render(text),
		TextBody: text,
	}
}
