package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/m3rciful/cloudbot/core/buildinfo"
	corecmd "github.com/m3rciful/cloudbot/core/cmd"
	coreconfig "github.com/m3rciful/cloudbot/core/config"
	"github.com/m3rciful/cloudbot/internal/app"
)

func main() {
	flags := pflag.NewFlagSet(buildinfo.Name, pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML config (default $CONFIG_PATH or config.yaml)")
	envFiles := flags.StringSlice("env-file", []string{".env"}, "dotenv files loaded before the config")
	version := flags.BoolP("version", "v", false, "print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *version {
		fmt.Println(buildinfo.String())
		return
	}

	err := corecmd.Run(corecmd.Options{
		ConfigPath:        *configPath,
		DefaultConfigPath: "config.yaml",
		EnvFiles:          *envFiles,
		Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
			return app.New(ctx, cfg)
		},
	})
	if err != nil {
		log.Fatalf("%s: %v", buildinfo.Name, err)
	}
}
