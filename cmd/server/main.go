package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/simp-lee/qrpromo/internal/app"
	"github.com/simp-lee/qrpromo/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run parses flags and either serves or, with -check, validates the config
// and prints the settings that most often differ between deployments.
func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("qrpromo", flag.ContinueOnError)
	configPath := fs.String("config", "configs/config.yaml", "path to configuration file")
	check := fs.Bool("check", false, "validate the configuration and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if *check {
		status := "active"
		if !cfg.Campaign.Active {
			status = "ended"
		}
		_, err := fmt.Fprintf(stdout, "config ok: mode=%s backend=%s campaign=%s codes=%s timezone=%s\n",
			cfg.Server.Mode, cfg.Backend.BaseURL, status,
			cfg.Campaign.CodePrefix, cfg.Campaign.Location())
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	return a.Run()
}
