package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

// PinEmailData is the data made available to the PIN templates.
type PinEmailData struct {
	Name       string
	Code       string
	TTLMinutes int
}

const (
	pinSubject = "Your Auth247 verification code"

	pinText = `Hi {{.Name}},

Your verification code is: {{.Code}}

It expires in {{.TTLMinutes}} minutes. If you did not request it, you can ignore this email.
`

	pinHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <p>Hi {{.Name}},</p>
  <p>Your verification code is:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>It expires in {{.TTLMinutes}} minutes. If you did not request it, you can ignore this email.</p>
</body>
</html>
`
)

// Templates renders the PIN email bodies.
type Templates struct {
	text *template.Template
	html *htmltemplate.Template
}

func NewTemplates() (*Templates, error) {
	text, err := template.New("pin_text").Parse(pinText)
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	html, err := htmltemplate.New("pin_html").Parse(pinHTML)
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	return &Templates{text: text, html: html}, nil
}

// Render returns the subject, plain-text body and HTML body.
func (t *Templates) Render(data PinEmailData) (subject, text, html string, err error) {
	var textBuf, htmlBuf bytes.Buffer
	if err := t.text.Execute(&textBuf, data); err != nil {
		return "", "", "", fmt.Errorf("render text body: %w", err)
	}
	if err := t.html.Execute(&htmlBuf, data); err != nil {
		return "", "", "", fmt.Errorf("render html body: %w", err)
	}
	return pinSubject, textBuf.String(), htmlBuf.String(), nil
}
