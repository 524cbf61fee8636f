// Command lms is a local learning-management system: courses, progress, quizzes and certificates.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/services/countdown"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(run(conf, os.Args))
}

func run(conf *core.Config, args []string) (code int) {
	c := newContainer(conf)

	must(c.Invoke(func(svcs services, s storeHandle, cd *countdown.Scheduler, logger core.Logger) {
		defer func() {
			if err := s.close(); err != nil {
				logger.Error("closing storage", "err", err)
			}
			if sl, ok := logger.(interface{ Sync() }); ok {
				sl.Sync()
			}
		}()

		if s.store.IsVolatile() && conf.Storage.Driver != core.StorageMemory {
			fmt.Fprintln(os.Stderr, "warning: storage is unavailable, nothing will be saved after this run")
		}

		cd.Start()
		defer cd.Stop()

		cli := newCommandLine(svcs, os.Stdin, os.Stdout)
		if err := cli.run(args); err != nil {
			if err != errHelp {
				fmt.Fprintln(os.Stderr, formatError(err))
				logger.Debug("command failed", "args", args[1:], "err", err)
			}
			code = 1
		}
	}))
	return code
}
