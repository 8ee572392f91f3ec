package operations

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var (
	setPlainLogger = func(c *cli.Context) error {
		grip.Warning(grip.SetSender(send.MakePlainLogger()))
		return nil
	}

	// loadEnvFile picks up a .env file from the working directory when one
	// exists, so MIPS_ATLAS_CONFIG can be kept per project.
	loadEnvFile = func(c *cli.Context) error {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(godotenv.Load(), "loading .env")
	}
)

func mergeBeforeFuncs(ops ...cli.BeforeFunc) cli.BeforeFunc {
	return func(c *cli.Context) error {
		catcher := grip.NewBasicCatcher()

		for _, op := range ops {
			catcher.Add(op(c))
		}

		return catcher.Resolve()
	}
}

func requireStringFlag(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if c.String(name) == "" {
			return errors.Errorf("flag '--%s' was not specified", name)
		}
		return nil
	}
}

func requireOnlyOneBool(flags ...string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		count := 0
		for _, name := range flags {
			if c.Bool(name) {
				count++
			}
		}
		if count != 1 {
			return errors.Errorf("must specify exactly one of: --%s", strings.Join(flags, ", --"))
		}
		return nil
	}
}
