package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core/certificate"
	"github.com/trezcool/lms/core/quiz"
)

func (cli *commandLine) takeQuiz(args []string) error {
	fs := cli.newFlagSet("quiz")
	courseID := fs.String("course", "", "The course whose quiz to take.")
	answers := fs.String("answers", "", "Submit these 1-based options at once, comma separated (0 leaves a question unanswered).")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *courseID == "" {
		fs.Usage()
		return errHelp
	}
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}

	sess, err := cli.Quizzes.Begin(usr.ID, *courseID)
	if err != nil {
		return err
	}
	q := sess.Quiz()
	fmt.Fprintf(cli.out, "%d questions, %s, pass at %d%%.\n", len(q.Questions), sess.Remaining(), sess.PassingScore())

	if *answers != "" {
		if err := selectAll(sess, *answers); err != nil {
			cli.Quizzes.Abandon(sess)
			return err
		}
		out, err := cli.Quizzes.Submit(sess)
		return cli.printOutcome(out, err)
	}
	return cli.quizLoop(sess)
}

func selectAll(sess *quiz.Session, answers string) error {
	for i, a := range strings.Split(answers, ",") {
		opt, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return errors.Errorf("answer %d: %q is not an option number", i+1, a)
		}
		if opt == 0 {
			continue
		}
		if err := sess.SelectAnswer(i, opt-1); err != nil {
			return err
		}
	}
	return nil
}

// quizLoop drives a session from the input: an option number answers the current question,
// n/p move, s submits and q abandons.
func (cli *commandLine) quizLoop(sess *quiz.Session) error {
	for {
		if sess.State() == quiz.Submitted {
			fmt.Fprintln(cli.out, "Time is up! Your answers were submitted.")
			out, err := cli.Quizzes.Submit(sess)
			return cli.printOutcome(out, err)
		}
		cli.printQuestion(sess)

		line, err := cli.readLine()
		if err != nil {
			cli.Quizzes.Abandon(sess)
			return errors.Wrap(err, "reading answer")
		}
		switch strings.ToLower(line) {
		case "n":
			sess.Advance()
		case "p":
			sess.Retreat()
		case "s":
			out, err := cli.Quizzes.Submit(sess)
			return cli.printOutcome(out, err)
		case "q":
			cli.Quizzes.Abandon(sess)
			fmt.Fprintln(cli.out, "Quiz abandoned. Nothing was recorded.")
			return nil
		default:
			opt, err := strconv.Atoi(line)
			if err != nil {
				fmt.Fprintln(cli.out, "Enter an option number, n, p, s or q.")
				continue
			}
			switch err := sess.SelectAnswer(sess.Current(), opt-1); {
			case err == nil:
				if !sess.IsLast() {
					sess.Advance()
				}
			case err != quiz.ErrSessionClosed:
				fmt.Fprintln(cli.out, err)
			}
		}
	}
}

func (cli *commandLine) printQuestion(sess *quiz.Session) {
	idx := sess.Current()
	q := sess.Question()
	chosen := sess.Answers()[idx]
	total := len(sess.Quiz().Questions)

	fmt.Fprintf(cli.out, "\nQuestion %d/%d (%s left)\n%s\n", idx+1, total, sess.Remaining(), q.Text)
	for i, opt := range q.Options {
		mark := " "
		if i == chosen {
			mark = "*"
		}
		fmt.Fprintf(cli.out, " %s %d) %s\n", mark, i+1, opt)
	}
	fmt.Fprint(cli.out, "> ")
}

func (cli *commandLine) printOutcome(out quiz.Outcome, err error) error {
	if err = cli.warnStorage(err); err != nil {
		return err
	}
	res := out.Result
	fmt.Fprintf(cli.out, "Score: %d%% (%d/%d correct), %s. Passing score: %d%%.\n",
		res.Score, res.CorrectCount, res.TotalQuestions, passFail(res.Passed), res.PassingScore)
	for _, b := range res.Breakdown {
		switch {
		case b.IsCorrect:
			fmt.Fprintf(cli.out, "  %d. correct\n", b.QuestionIndex+1)
		case b.Chosen == quiz.Unanswered:
			fmt.Fprintf(cli.out, "  %d. unanswered (answer: %d)\n", b.QuestionIndex+1, b.Correct+1)
		default:
			fmt.Fprintf(cli.out, "  %d. wrong: %d (answer: %d)\n", b.QuestionIndex+1, b.Chosen+1, b.Correct+1)
		}
	}
	if out.Certificate != nil {
		fmt.Fprintln(cli.out, "Congratulations! You earned a certificate:")
		return certificate.Render(cli.out, *out.Certificate)
	}
	if !res.Passed {
		fmt.Fprintln(cli.out, "Review the lessons and try again.")
	}
	return nil
}
