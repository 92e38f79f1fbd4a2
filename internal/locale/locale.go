// Package locale renders dates and notification texts for the supported languages.
package locale

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo
)

const (
	PortugueseBR = "pt-BR"
	English      = "en"
)

var ptMonths = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// Formatter renders dates in a fixed display location.
type Formatter struct {
	lang string
	loc  *time.Location
}

// New returns a formatter for lang ("pt-BR" or "en") displaying times in tz.
// An empty tz means UTC.
func New(lang, tz string) (*Formatter, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}

	switch normalizeLang(lang) {
	case PortugueseBR:
		return &Formatter{lang: PortugueseBR, loc: loc}, nil
	case English:
		return &Formatter{lang: English, loc: loc}, nil
	default:
		return nil, fmt.Errorf("unsupported locale %q", lang)
	}
}

// Supported reports whether lang has a formatter.
func Supported(lang string) bool {
	switch normalizeLang(lang) {
	case PortugueseBR, English:
		return true
	}
	return false
}

func normalizeLang(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "pt", "pt-br", "pt_br":
		return PortugueseBR
	case "", "en", "en-us", "en_us", "en-gb":
		return English
	}
	return lang
}

// FormatDateTime renders t, e.g. "dia 02 de janeiro, às 15:04h" or "2 January at 15:04".
func (f *Formatter) FormatDateTime(t time.Time) string {
	t = t.In(f.loc)
	if f.lang == PortugueseBR {
		return fmt.Sprintf("dia %02d de %s, às %d:%02dh", t.Day(), ptMonths[t.Month()-1], t.Hour(), t.Minute())
	}
	return t.Format("2 January at 15:04")
}

// NewAppointmentMessage is the provider notification for a new booking.
func (f *Formatter) NewAppointmentMessage(userName string, date time.Time) string {
	if f.lang == PortugueseBR {
		return fmt.Sprintf("Novo agendamento de %s para %s", userName, f.FormatDateTime(date))
	}
	return fmt.Sprintf("New appointment from %s for %s", userName, f.FormatDateTime(date))
}

// CancellationSubject is the subject line of the cancellation e-mail.
func (f *Formatter) CancellationSubject() string {
	if f.lang == PortugueseBR {
		return "Agendamento cancelado"
	}
	return "Appointment canceled"
}

// CancellationBody is the plain-text body of the cancellation e-mail.
func (f *Formatter) CancellationBody(providerName, userName string, date time.Time) string {
	if f.lang == PortugueseBR {
		return fmt.Sprintf("Olá, %s\n\nVocê tem um novo cancelamento.\n\nCliente: %s\nData/hora: %s\n\nO horário está novamente disponível para novos agendamentos.",
			providerName, userName, f.FormatDateTime(date))
	}
	return fmt.Sprintf("Hello, %s\n\nYou have a new cancellation.\n\nCustomer: %s\nDate/time: %s\n\nThe slot is available for new bookings again.",
		providerName, userName, f.FormatDateTime(date))
}
