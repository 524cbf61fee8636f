package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core/user"
)

func (cli *commandLine) register(args []string) error {
	fs := cli.newFlagSet("register")
	name := fs.String("name", "", "Your full name.")
	email := fs.String("email", "", "Your email address. The password will be prompted next.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *name == "" || *email == "" {
		fs.Usage()
		return errHelp
	}
	pwd, err := cli.readPassword("Choose a password:")
	if err != nil {
		return err
	}
	confirm, err := cli.readPassword("Confirm password:")
	if err != nil {
		return err
	}
	if pwd != confirm {
		return errors.New("passwords do not match")
	}

	usr, err := cli.Users.Register(user.NewUser{Name: *name, Email: *email, Password: pwd})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Welcome, %s! You are now logged in.\n", usr.Name)
	return nil
}

func (cli *commandLine) login(args []string) error {
	fs := cli.newFlagSet("login")
	email := fs.String("email", "", "Your email address. The password will be prompted next.")
	provider := fs.String("provider", "", "Sign in with an external identity provider instead (e.g. google).")
	subject := fs.String("id", "", "The account id at the identity provider.")
	name := fs.String("name", "", "Your name at the identity provider.")
	picture := fs.String("picture", "", "Your avatar at the identity provider.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}

	var (
		usr user.User
		err error
	)
	if *provider != "" {
		usr, err = cli.Users.LoginExternal(user.ExternalIdentity{
			Provider: *provider,
			Subject:  *subject,
			Name:     *name,
			Email:    *email,
			Picture:  *picture,
		})
	} else {
		var pwd string
		if pwd, err = cli.readPassword("Password:"); err != nil {
			return err
		}
		usr, err = cli.Users.Login(*email, pwd)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Welcome back, %s!\n", usr.Name)
	return nil
}

func (cli *commandLine) logout() error {
	if err := cli.Users.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Logged out.")
	return nil
}

func (cli *commandLine) whoami() error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s <%s>\n", usr.Name, usr.Email)
	fmt.Fprintf(cli.out, "  id:      %s\n", usr.ID)
	fmt.Fprintf(cli.out, "  roles:   %s\n", strings.Join(usr.Roles, ", "))
	if usr.IsDemo {
		fmt.Fprintln(cli.out, "  account: demo")
	}
	if usr.OAuthProvider != "" {
		fmt.Fprintf(cli.out, "  account: %s\n", usr.OAuthProvider)
	}
	fmt.Fprintf(cli.out, "  joined:  %s\n", usr.CreatedAt.Format("2006-01-02"))
	return nil
}

func (cli *commandLine) profile(args []string) error {
	fs := cli.newFlagSet("profile")
	var (
		pu      user.ProfileUpdate
		strFlds = map[string]**string{
			"name":      &pu.Name,
			"avatar":    &pu.Avatar,
			"bio":       &pu.Bio,
			"phone":     &pu.Phone,
			"education": &pu.Education,
			"goals":     &pu.Goals,
			"theme":     &pu.Theme,
			"language":  &pu.Language,
		}
		strVals = make(map[string]*string, len(strFlds))
	)
	for name := range strFlds {
		strVals[name] = fs.String(name, "", "Set the "+name+".")
	}
	notify := fs.Bool("notifications", true, "Enable notifications.")
	autoplay := fs.Bool("autoplay", true, "Autoplay lesson videos.")
	if err := parse(fs, args); err != nil {
		return err
	}

	// only flags given on the command line are applied
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "notifications":
			pu.Notify = notify
		case "autoplay":
			pu.Autoplay = autoplay
		default:
			*strFlds[f.Name] = strVals[f.Name]
		}
	})

	var (
		usr user.User
		err error
	)
	if fs.NFlag() == 0 {
		usr, err = cli.currentUser()
	} else {
		usr, err = cli.Users.UpdateProfile(pu)
		err = cli.warnStorage(err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s <%s>\n", usr.Name, usr.Email)
	p, prefs := usr.Profile, usr.Preferences
	for _, row := range [][2]string{
		{"avatar", p.Avatar}, {"bio", p.Bio}, {"phone", p.Phone}, {"education", p.Education}, {"goals", p.Goals},
	} {
		if row[1] != "" {
			fmt.Fprintf(cli.out, "  %-10s %s\n", row[0]+":", row[1])
		}
	}
	fmt.Fprintf(cli.out, "  theme: %s, language: %s, notifications: %t, autoplay: %t\n",
		prefs.Theme, prefs.Language, prefs.Notifications, prefs.Autoplay)
	return nil
}
