package email

import (
	"bytes"
	"html/template"
	"time"
)

// Kind selects which code mail to render.
type Kind int

const (
	// KindVerification is the registration-completion mail.
	KindVerification Kind = iota
	// KindSigninConfirmation confirms a signin attempt on a verified account.
	KindSigninConfirmation
)

// CodeMail is the data rendered into either code mail. Code arrives already
// formatted for display.
type CodeMail struct {
	Name     string
	LastName string
	Email    string
	Boleta   string
	Code     string
	Year     int
	Title    string
	Intro    string
	Outro    string
}

const (
	subjectVerification = "Acceso a Repositorio Digital ESCOM"
	subjectSignin       = "Confirmar inicio de sesión - Repositorio Digital ESCOM"
)

var codeMailTmpl = template.Must(template.New("code_mail").Parse(`
<html>
<head>
	<style>
	body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
	.container { max-width: 600px; margin: 0 auto; padding: 20px; text-align: center; }
	h1 { color: #2c3e50; }
	.info { background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px auto; max-width: 400px; text-align: left; }
	.code { font-size: 32px; font-weight: bold; letter-spacing: 5px; color: #3498db; display: block; margin: 30px 0; }
	.footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; }
	</style>
</head>
<body>
	<div class='container'>
		<h1>{{.Title}}</h1>
		<p>Hola <strong>{{.Name}} {{.LastName}}</strong>,</p>
		<p>{{.Intro}}</p>

		<div class='info'>
			<p><strong>Email:</strong> {{.Email}}</p>
			{{if .Boleta}}<p><strong>Boleta:</strong> {{.Boleta}}</p>{{end}}
		</div>

		<span class='code'>{{.Code}}</span>

		<p>{{.Outro}}</p>
		<p>Este código expirará en 1 hora.</p>

		<div class='footer'>
			<p>Este es un mensaje automático, por favor no respondas a este correo.</p>
			<p>© ESCOM - IPN {{.Year}}</p>
		</div>
	</div>
</body>
</html>`))

// Render produces the subject and HTML body for a code mail.
func Render(kind Kind, data CodeMail) (subject, body string) {
	data.Year = time.Now().UTC().Year()

	switch kind {
	case KindSigninConfirmation:
		subject = subjectSignin
		data.Title = "Confirmar inicio de sesión - Repositorio Digital ESCOM"
		data.Intro = "Se ha detectado un intento de inicio de sesión en tu cuenta. Para confirmar que eres tú, utiliza el siguiente código:"
		data.Outro = "Ingresa este código en la página de inicio de sesión para completar el proceso."
	default:
		subject = subjectVerification
		data.Title = "Verificación de cuenta - Repositorio Digital ESCOM"
		data.Intro = "Para completar tu registro, utiliza el siguiente código de verificación:"
		data.Outro = "Ingresa este código en la página de verificación para activar tu cuenta."
	}

	var buf bytes.Buffer
	if err := codeMailTmpl.Execute(&buf, data); err != nil {
		// The template is static and the data is plain strings; execution
		// cannot realistically fail, but never send an empty body silently.
		return subject, data.Code
	}
	return subject, buf.String()
}
