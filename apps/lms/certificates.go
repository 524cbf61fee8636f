package main

import (
	"fmt"

	"github.com/trezcool/lms/core/certificate"
)

func (cli *commandLine) certificates(args []string) error {
	fs := cli.newFlagSet("certificates")
	id := fs.String("id", "", "Print this certificate.")
	if err := parse(fs, args); err != nil {
		return err
	}
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}

	if *id != "" {
		cert, err := cli.Certs.Get(usr.ID, *id)
		if err != nil {
			return err
		}
		return certificate.Render(cli.out, cert)
	}

	certs, err := cli.Certs.ListForUser(usr.ID)
	if err != nil {
		return err
	}
	if len(certs) == 0 {
		fmt.Fprintln(cli.out, "No certificates yet. Pass a course quiz to earn one.")
		return nil
	}
	for _, c := range certs {
		fmt.Fprintf(cli.out, "%s  %-30s %3d%%  %s\n", c.ID, c.CourseTitle, c.Score, c.IssuedAt.Format("2006-01-02"))
	}
	return nil
}

func (cli *commandLine) verify(args []string) error {
	fs := cli.newFlagSet("verify")
	id := fs.String("id", "", "The certificate id.")
	code := fs.String("code", "", "The verification code printed on the certificate.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}

	var (
		v   certificate.Verification
		err error
	)
	if *code != "" {
		v, err = cli.Certs.VerifyCode(*id, *code)
	} else {
		v, err = cli.Certs.Verify(*id)
	}
	if err != nil {
		return err
	}
	switch {
	case v.Certificate == nil:
		fmt.Fprintf(cli.out, "Certificate %s was not found.\n", *id)
	case v.Valid:
		c := v.Certificate
		fmt.Fprintf(cli.out, "Certificate %s is valid: %s completed %s with %d%% on %s.\n",
			c.ID, c.StudentName, c.CourseTitle, c.Score, c.IssuedAt.Format("January 2, 2006"))
	default:
		fmt.Fprintf(cli.out, "Certificate %s is NOT valid.\n", *id)
	}
	return nil
}
