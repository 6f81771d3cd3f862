package mailer

import (
	"bytes"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
)

// ResetData feeds the password reset templates.
type ResetData struct {
	Token    string
	ResetURL string
	Email    string
}

const resetText = `We received a request to reset the password for {{.Email}}.

Your reset token: {{.Token}}

Open {{.ResetURL}}?token={{.Token}} to choose a new password.
The token is valid for one hour and can be used once.

If you did not request this, you can ignore this message.`

const resetHTML = `<p>We received a request to reset the password for <b>{{.Email}}</b>.</p>
<p>Your reset token: <code>{{.Token}}</code></p>
<p><a href="{{.ResetURL}}?token={{.Token}}">Choose a new password</a></p>
<p>The token is valid for one hour and can be used once.
If you did not request this, you can ignore this message.</p>`

var (
	resetTextTpl = texttpl.Must(texttpl.New("reset_text").Parse(resetText))
	resetHTMLTpl = htmpl.Must(htmpl.New("reset_html").Parse(resetHTML))
)

// RenderReset renders the text and HTML bodies for a reset-token email.
func RenderReset(d ResetData) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := resetTextTpl.Execute(&tb, d); err != nil {
		return "", "", err
	}
	if err := resetHTMLTpl.Execute(&hb, d); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}

const profileUpdatedText = `Hi {{.Name}},

Your account profile was updated. If this was not you, contact support.`

const welcomeText = `Hi {{.Name}},

Welcome aboard. Your account is ready.`

var notificationTpls = map[string]*texttpl.Template{
	"profile_updated": texttpl.Must(texttpl.New("profile_updated").Parse(profileUpdatedText)),
	"welcome":         texttpl.Must(texttpl.New("welcome").Parse(welcomeText)),
}

var notificationSubjects = map[string]string{
	"profile_updated": "Your profile was updated",
	"welcome":         "Welcome",
}

// RenderNotification renders a queued notification template by name.
func RenderNotification(name string, data map[string]any) (subject, text string, err error) {
	tpl, ok := notificationTpls[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	var b bytes.Buffer
	if err := tpl.Execute(&b, data); err != nil {
		return "", "", err
	}
	return notificationSubjects[name], b.String(), nil
}
