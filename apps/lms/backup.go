package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core/user"
)

func (cli *commandLine) export(args []string) error {
	fs := cli.newFlagSet("export")
	path := fs.String("o", "", "Write to this file instead of the standard output.")
	if err := parse(fs, args); err != nil {
		return err
	}
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	b, err := cli.Users.Export(usr.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding backup")
	}

	if *path == "" {
		_, err = fmt.Fprintln(cli.out, string(data))
		return err
	}
	if err := os.WriteFile(*path, append(data, '\n'), 0o600); err != nil {
		return errors.Wrap(err, "writing backup")
	}
	fmt.Fprintf(cli.out, "Exported to %s.\n", *path)
	return nil
}

func (cli *commandLine) importBackup(args []string) error {
	fs := cli.newFlagSet("import")
	path := fs.String("i", "", "The file written by export.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *path == "" {
		fs.Usage()
		return errHelp
	}
	data, err := os.ReadFile(*path)
	if err != nil {
		return errors.Wrap(err, "reading backup")
	}
	var b user.Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return errors.Wrap(err, "decoding backup")
	}

	usr, err := cli.Users.Import(b)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Imported %s <%s>: %d courses, %d certificates. You are now logged in.\n",
		usr.Name, usr.Email, len(usr.EnrolledCourseIDs), len(usr.Certificates))
	return nil
}
