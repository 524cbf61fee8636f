package certificate

import (
	"io"
	"text/template"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core/user"
)

var certTmpl = template.Must(template.New("certificate").Parse(`
================================================================
                   CERTIFICATE OF COMPLETION
================================================================

  This certifies that

      {{.StudentName}}

  has successfully completed

      {{.CourseTitle}}
{{- if .Instructor}}
      taught by {{.Instructor}}
{{- end}}

  with a final score of {{.Score}}%.

  Issued:            {{.IssuedAt.Format "January 2, 2006"}}
  Certificate ID:    {{.ID}}
  Verification code: {{.VerificationToken}}
================================================================
`))

// Render writes a plain-text certificate to w.
func Render(w io.Writer, cert user.Certificate) error {
	if err := certTmpl.Execute(w, cert); err != nil {
		return errors.Wrap(err, "rendering certificate")
	}
	return nil
}
