package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core/settings"
	"github.com/trezcool/lms/storage/database/kvstore"
	"github.com/trezcool/lms/storage/kv/sqlite"
)

func (cli *commandLine) appSettings(args []string) error {
	fs := cli.newFlagSet("settings")
	theme := fs.String("theme", "", "light or dark.")
	fontSize := fs.String("font-size", "", "small, medium or large.")
	if err := parse(fs, args); err != nil {
		return err
	}

	s := cli.Settings.Get()
	if fs.NFlag() > 0 {
		var upd settings.Update
		if *theme != "" {
			upd.Theme = theme
		}
		if *fontSize != "" {
			upd.FontSize = fontSize
		}
		var err error
		if s, err = cli.Settings.Update(upd); err != nil {
			return cli.warnStorage(err)
		}
	}
	fmt.Fprintf(cli.out, "theme: %s\nfont size: %s\n", s.Theme, s.FontSize)
	return nil
}

func (cli *commandLine) storage(args []string) error {
	cmd := "info"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "info":
		info, err := cli.Store.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "backend: %s\n", info.Backend)
		if info.Volatile {
			fmt.Fprintln(cli.out, "  volatile: data will not survive a restart")
		}
		fmt.Fprintf(cli.out, "schema version: %d\n", cli.Store.SchemaVersion())
		fmt.Fprintf(cli.out, "entries: %d\n", info.Keys)
		if info.Quota > 0 {
			fmt.Fprintf(cli.out, "used: %d of %d bytes (%.1f%%)\n", info.Used, info.Quota, 100*float64(info.Used)/float64(info.Quota))
		} else {
			fmt.Fprintf(cli.out, "used: %d bytes\n", info.Used)
		}
	case "cleanup":
		n := cli.Store.Cleanup()
		fmt.Fprintf(cli.out, "Removed %d stale temporary entries.\n", n)
	case "clear":
		if err := cli.Store.Clear(); err != nil {
			return err
		}
		if _, err := cli.Store.Migrate(kvrepos.Migrations); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "All application data was removed.")
	default:
		fmt.Fprintln(cli.out, "Usage: storage [info|cleanup|clear]")
		return errHelp
	}
	return nil
}

// migrate runs goose commands against the database, then brings the stored records up to date.
func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cli.out, "Usage: migrate [up|up-by-one|up-to V|down|down-to V|redo|reset|status|version]")
		return errHelp
	}

	db, ok := cli.Store.Backend().(*sqlite.Backend)
	if !ok {
		return errors.Errorf("migrate needs the sqlite storage driver (current: %s)", cli.Store.Backend().Name())
	}
	if err := db.RunMigrations(cli.out, args[0], args[1:]...); err != nil {
		return err
	}

	found, err := cli.Store.Migrate(kvrepos.Migrations)
	if err != nil {
		return err
	}
	if found > 0 && found != cli.Store.SchemaVersion() {
		fmt.Fprintf(cli.out, "records migrated from version %d to %d\n", found, cli.Store.SchemaVersion())
	}
	return nil
}
