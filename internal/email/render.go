package email

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// renderData is what template fields such as {{.FirstName}} resolve to.
type renderData struct {
	FirstName string
	LastName  string
	FullName  string
	Email     string
}

func dataFor(r *Recipient) renderData {
	return renderData{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		FullName:  strings.TrimSpace(r.FirstName + " " + r.LastName),
		Email:     r.Email,
	}
}

// render fills tpl for r. The subject is plain text; the body is HTML and
// customer values are escaped.
func render(tpl *Template, r *Recipient) (subject, body string, err error) {
	data := dataFor(r)

	st, err := texttemplate.New("subject").Option("missingkey=error").Parse(tpl.Subject)
	if err != nil {
		return "", "", err
	}
	var sb strings.Builder
	if err := st.Execute(&sb, data); err != nil {
		return "", "", err
	}

	bt, err := htmltemplate.New("body").Option("missingkey=error").Parse(tpl.Body)
	if err != nil {
		return "", "", err
	}
	var bb strings.Builder
	if err := bt.Execute(&bb, data); err != nil {
		return "", "", err
	}

	return sb.String(), bb.String(), nil
}

// validateTemplate checks that subject and body parse and render against a
// sample recipient.
func validateTemplate(subject, body string) error {
	sample := &Recipient{FirstName: "Juan", LastName: "Dela Cruz", Email: "juan@example.com"}
	_, _, err := render(&Template{Subject: subject, Body: body}, sample)
	return err
}
