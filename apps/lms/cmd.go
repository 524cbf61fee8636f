package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"go.uber.org/dig"
	"golang.org/x/term"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
	"github.com/trezcool/lms/core/certificate"
	"github.com/trezcool/lms/core/enrollment"
	"github.com/trezcool/lms/core/quiz"
	"github.com/trezcool/lms/core/settings"
	"github.com/trezcool/lms/core/user"
	"github.com/trezcool/lms/storage/kv"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type services struct {
	dig.In

	Conf     *core.Config
	Store    *kv.Store
	Catalog  catalog.Catalog
	Users    *user.Service
	Ledger   *enrollment.Service
	Quizzes  *quiz.Engine
	Certs    *certificate.Service
	Settings *settings.Service
}

type commandLine struct {
	services
	out io.Writer
	in  *bufio.Reader
}

func newCommandLine(svcs services, in io.Reader, out io.Writer) *commandLine {
	return &commandLine{services: svcs, in: bufio.NewReader(in), out: out}
}

var commands = []struct{ name, usage string }{
	{"register", "register -name NAME -email EMAIL - create an account (password prompted)"},
	{"login", "login -email EMAIL | -provider NAME -id ID -name NAME -email EMAIL - sign in"},
	{"logout", "logout - sign out"},
	{"whoami", "whoami - show the signed-in user"},
	{"profile", "profile [-name ..] [-bio ..] [-theme light|dark] ... - show or update the profile"},
	{"courses", "courses [-id COURSE] - list the catalog or show a course"},
	{"search", "search [-q TEXT] [-category ..] [-level ..] [-instructor ..] [-duration short|medium|long] [-sort ..]"},
	{"enroll", "enroll -course COURSE - enroll in a course"},
	{"complete", "complete -course COURSE [-lesson LESSON] - mark a lesson (default: the next one) completed"},
	{"progress", "progress [-course COURSE] - show course progress"},
	{"dashboard", "dashboard - learning summary"},
	{"quiz", "quiz -course COURSE [-answers 1,3,2] - take a course quiz"},
	{"certificates", "certificates [-id CERT] - list certificates or print one"},
	{"verify", "verify -id CERT [-code CODE] - verify a certificate"},
	{"export", "export [-o FILE] - export your data as JSON"},
	{"import", "import -i FILE - import data exported by export"},
	{"settings", "settings [-theme light|dark] [-font-size small|medium|large] - show or update app settings"},
	{"storage", "storage [info|cleanup|clear] - inspect or maintain local storage"},
	{"migrate", "migrate [up|up-by-one|up-to V|down|down-to V|redo|reset|status|version] - manage the database schema"},
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	for _, cmd := range commands {
		fmt.Fprintln(cli.out, "  "+cmd.usage)
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses args into fs, turning -h into errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	cmd, rest := args[1], args[2:]
	switch cmd {
	case "register":
		return cli.register(rest)
	case "login":
		return cli.login(rest)
	case "logout":
		return cli.logout()
	case "whoami":
		return cli.whoami()
	case "profile":
		return cli.profile(rest)
	case "courses":
		return cli.courses(rest)
	case "search":
		return cli.search(rest)
	case "enroll":
		return cli.enroll(rest)
	case "complete":
		return cli.complete(rest)
	case "progress":
		return cli.progress(rest)
	case "dashboard":
		return cli.dashboard()
	case "quiz":
		return cli.takeQuiz(rest)
	case "certificates":
		return cli.certificates(rest)
	case "verify":
		return cli.verify(rest)
	case "export":
		return cli.export(rest)
	case "import":
		return cli.importBackup(rest)
	case "settings":
		return cli.appSettings(rest)
	case "storage":
		return cli.storage(rest)
	case "migrate":
		return cli.migrate(rest)
	default:
		cli.printUsage()
		return errHelp
	}
}

// currentUser returns the signed-in user.
func (cli *commandLine) currentUser() (user.User, error) {
	usr, err := cli.Users.CurrentSession()
	if err != nil {
		if core.Is(err, core.ErrNotAuthenticated) {
			return user.User{}, core.NewError(core.ErrNotAuthenticated, "please log in first (lms login -email EMAIL)")
		}
		return user.User{}, err
	}
	return usr, nil
}

func (cli *commandLine) readPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) readLine() (string, error) {
	line, err := cli.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// warnStorage reports a mutation that did not survive to durable storage.
func (cli *commandLine) warnStorage(err error) error {
	if core.IsStorageFailure(err) {
		fmt.Fprintln(cli.out, "warning: your changes could not be saved and will be lost when the program exits")
		return nil
	}
	return err
}
