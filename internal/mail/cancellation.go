package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"barbeapp/internal/models"
)

type cancellationFormatter interface {
	CancellationSubject() string
	CancellationBody(providerName, userName string, date time.Time) string
}

// CancellationHandler sends the provider an e-mail about a canceled appointment.
type CancellationHandler struct {
	sender    Sender
	formatter cancellationFormatter
}

func NewCancellationHandler(sender Sender, formatter cancellationFormatter) *CancellationHandler {
	return &CancellationHandler{sender: sender, formatter: formatter}
}

// Handle processes a CancellationMail job payload.
func (h *CancellationHandler) Handle(ctx context.Context, payload []byte) error {
	var p models.CancellationMailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode cancellation payload: %w", err)
	}
	a := p.Appointment
	if a.Provider.Email == "" {
		return fmt.Errorf("appointment %d: provider e-mail missing", a.ID)
	}

	return h.sender.Send(ctx, Message{
		To:      a.Provider.Email,
		ToName:  a.Provider.Name,
		Subject: h.formatter.CancellationSubject(),
		Body:    h.formatter.CancellationBody(a.Provider.Name, a.User.Name, a.Date),
	})
}
