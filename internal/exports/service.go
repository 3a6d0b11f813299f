package exports

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/angelmondragon/inventory-backend/internal/rooms"
	"github.com/angelmondragon/inventory-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
	"github.com/angelmondragon/inventory-backend/pkg/mailer"
	"github.com/angelmondragon/inventory-backend/pkg/spreadsheet"
)

const (
	attachmentName = "room-data.xlsx"
	messageText    = "Attached is the Excel file containing room data."
)

type roomLister interface {
	ListRooms(ctx context.Context, ownerID, projectID string) ([]rooms.Room, error)
}

// Service exports a project's rooms as a spreadsheet sent by email.
type Service interface {
	Export(ctx context.Context, ownerID string, input Input) (*Result, error)
}

// Input names the project to export and the recipient.
type Input struct {
	Email     string
	ProjectID string
}

// Result reports what was exported. Sent is false when the project had no rooms.
type Result struct {
	ProjectID string `json:"project_id"`
	Rooms     int    `json:"rooms"`
	Sent      bool   `json:"sent"`
}

type service struct {
	rooms   roomLister
	relay   mailer.Relay
	sender  string
	subject string
	logg    *logger.Logger
	render  func([]spreadsheet.Sheet) ([]byte, error)
	now     func() time.Time
}

// NewService constructs the export service.
func NewService(lister roomLister, relay mailer.Relay, cfg config.ExportConfig, logg *logger.Logger) (Service, error) {
	if lister == nil {
		return nil, fmt.Errorf("room lister required")
	}
	if relay == nil {
		return nil, fmt.Errorf("mail relay required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if _, err := mail.ParseAddress(cfg.Sender); err != nil {
		return nil, fmt.Errorf("invalid export sender %q: %w", cfg.Sender, err)
	}
	subject := cfg.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "Room Data Export"
	}
	return &service{
		rooms:   lister,
		relay:   relay,
		sender:  cfg.Sender,
		subject: subject,
		logg:    logg,
		render:  spreadsheet.Render,
		now:     time.Now,
	}, nil
}

func (s *service) Export(ctx context.Context, ownerID string, input Input) (*Result, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	projectID := strings.TrimSpace(input.ProjectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	ctx = s.logg.WithProjectID(ctx, projectID)

	list, err := s.rooms.ListRooms(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	result := &Result{ProjectID: projectID, Rooms: len(list)}
	if len(list) == 0 {
		s.logg.Info(ctx, "export.no_rooms")
		return result, nil
	}

	workbook, err := s.render(roomSheets(list))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "render spreadsheet")
	}

	raw, err := mailer.Compose(mailer.Message{
		From:    s.sender,
		To:      []string{email},
		Subject: s.subject,
		Text:    messageText,
		Attachments: []mailer.Attachment{{
			FileName:    attachmentName,
			ContentType: spreadsheet.ContentType,
			Data:        workbook,
		}},
	}, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "compose export email")
	}

	if err := s.relay.Send(ctx, s.sender, []string{email}, raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "send export email")
	}

	result.Sent = true
	s.logg.Info(s.logg.WithField(ctx, "rooms", len(list)), "export.sent")
	return result, nil
}
