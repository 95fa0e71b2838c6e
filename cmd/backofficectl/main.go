// Command backofficectl is the operator CLI for the back-office API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xenking/backoffice/internal/client"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries state shared by subcommands.
type cli struct {
	v   *viper.Viper
	out io.Writer
}

func (c *cli) client() *client.Client {
	return client.New(c.v.GetString("api-url"))
}

// context bounds a command by the configured timeout.
func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.v.GetDuration("timeout"))
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}
	var cfgFile string

	root := &cobra.Command{
		Use:           "backofficectl",
		Short:         "Manage the restaurant menu and orders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.initConfig(cfgFile)
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.backofficectl.yaml)")
	root.PersistentFlags().String("api-url", "http://localhost:8080", "back-office API base URL")
	root.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")
	_ = c.v.BindPFlags(root.PersistentFlags())

	root.AddCommand(
		newMenuCmd(c),
		newOrdersCmd(c),
		newTopSellersCmd(c),
	)
	return root
}

func (c *cli) initConfig(cfgFile string) error {
	if cfgFile != "" {
		c.v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			c.v.AddConfigPath(home)
		}
		c.v.SetConfigType("yaml")
		c.v.SetConfigName(".backofficectl")
	}

	c.v.SetEnvPrefix("BACKOFFICE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
	}
	return nil
}
