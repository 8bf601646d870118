package usecase

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
)

const (
	mailSubject = "Message From Your Portfolio"
	mailHeading = "From Your Portfolio"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/submission.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/submission.txt.tmpl"))
)

type contentData struct {
	Heading string
	Email   string
	Name    string
	Message string
}

// composeMessage renders sub into the message relayed to the fixed recipient.
func (s *Usecase) composeMessage(sub entity.Submission, accessToken string) (mail.Message, error) {
	data := contentData{Heading: mailHeading, Email: sub.Email, Name: sub.Name, Message: sub.Message}

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return mail.Message{}, err
	}
	if err := textTemplate.Execute(&text, data); err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		From:        s.cfg.GetString("mail.from"),
		To:          []string{s.cfg.GetString("mail.to")},
		ReplyTo:     sub.Email,
		Subject:     mailSubject,
		TextBody:    text.String(),
		HTMLBody:    html.String(),
		AccessToken: accessToken,
	}, nil
}
