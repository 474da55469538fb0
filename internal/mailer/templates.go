package mailer

import (
	"html/template"
	"strings"
)

var verifyEmailTmpl = template.Must(template.New("verify_email").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif;">
    <h2>Hi {{.Username}},</h2>
    <p>Thanks for signing up. Please confirm your email address to activate your account:</p>
    <p><a href="{{.Link}}">Confirm my email</a></p>
    <p>If you did not create this account, you can safely ignore this message.</p>
  </body>
</html>`))

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif;">
    <h2>Password reset requested</h2>
    <p>Follow the link below to choose a new password. The link is valid for 15 minutes and can be used once:</p>
    <p><a href="{{.Link}}">Reset my password</a></p>
    <p>If you did not request this, no action is needed.</p>
  </body>
</html>`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
