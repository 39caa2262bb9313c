package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spf13/afero"
	"github.com/user-none/emopl/cli"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	rate := flag.Int("rate", 0, "output sample rate in Hz (default 49716)")
	channels := flag.Int("channels", 0, "output channels: 1 or 2 (default 2)")
	tick := flag.Uint("tick", 0, "override the song's tick rate in Hz")
	quiet := flag.Bool("quiet", false, "do not show render progress")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: emopl [flags] <song.imf|song.wlf|song.vgm|song.vgz> <out.wav>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	fs := afero.NewOsFs()
	cfg := cli.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = cli.LoadConfig(fs, *configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rate":
			cfg.SampleRate = *rate
		case "channels":
			cfg.Channels = *channels
		case "tick":
			cfg.TickRate = uint32(*tick)
		case "quiet":
			cfg.Progress = !*quiet
		}
	})

	runner := cli.NewRunner(fs, cfg, os.Stdout)
	stats, err := runner.Render(flag.Arg(0), flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(stats.Summary())
}
