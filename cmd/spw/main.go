// Copyright 2018-2019 The logrange Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jrivets/log4g"
	"github.com/pkg/errors"
	"github.com/spykewave/spykewave/pkg/datatype"
	"github.com/spykewave/spykewave/pkg/specest"
	"github.com/spykewave/spykewave/pkg/spyio"
	"github.com/spykewave/spykewave/pkg/storage"
	"github.com/spykewave/spykewave/pkg/util"
	"gopkg.in/urfave/cli.v2"
)

const (
	Version = "0.1.0"
)

const (
	// Common flag names
	argLogCfgFile = "log-config-file"
	argCfgFile    = "config-file"
	argDir        = "storage-dir"
	argSizeLimit  = "size-limit-gb"

	// Command flag names
	argDryRun   = "dry-run"
	argSpectral = "spectral"
	argLog      = "log"
	argFormat   = "format"
	argFoi      = "foi"
	argTaper    = "taper"
)

var log = log4g.GetLogger("spw")
var cfg = storage.GetDefaultConfig()

func main() {
	defer log4g.Shutdown()

	app := &cli.App{
		Name:    "spw",
		Version: Version,
		Usage:   "Electrophysiology data storage tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  argLogCfgFile,
				Usage: "The log4g configuration file name",
			},
			&cli.StringFlag{
				Name:  argCfgFile,
				Usage: "The storage configuration file name (YAML or JSON)",
			},
			&cli.StringFlag{
				Name:  argDir,
				Usage: "The managed storage directory, overrides $" + storage.EnvStorageDir,
				Value: cfg.Dir,
			},
			&cli.Float64Flag{
				Name:  argSizeLimit,
				Usage: "The storage size in GB which causes a warning",
				Value: cfg.SizeLimitGB,
			},
		},
		Before: before,
		Commands: []*cli.Command{
			&cli.Command{
				Name:   "storage",
				Usage:  "Print the managed storage usage",
				Action: storageUsage,
			},
			&cli.Command{
				Name:   "cleanup",
				Usage:  "Remove files of sessions which are not running any more",
				Action: cleanup,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  argDryRun,
						Usage: "Only print the files which would be removed",
					},
				},
			},
			&cli.Command{
				Name:      "inspect",
				Usage:     "Load a data file and print the object summary",
				ArgsUsage: "<file>",
				Action:    inspect,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  argSpectral,
						Usage: "Load the file as spectral data",
					},
					&cli.BoolFlag{
						Name:  argLog,
						Usage: "Print the object log",
					},
				},
			},
			&cli.Command{
				Name:      "convert",
				Usage:     "Save a data file in another format, the format extension is added to dest without one",
				ArgsUsage: "<src> <dest>",
				Action:    convert,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  argFormat,
						Usage: "The output format: spw, npy, zst or lz4",
						Value: spyio.FormatSPW.String(),
					},
					&cli.BoolFlag{
						Name:  argSpectral,
						Usage: "Load the file as spectral data",
					},
				},
			},
			&cli.Command{
				Name:      "periodogram",
				Usage:     "Compute the power spectrum of every trial of analog data",
				ArgsUsage: "<src> <dest.spw>",
				Action:    periodogram,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  argFoi,
						Usage: "Comma separated frequencies of interest in Hz",
					},
					&cli.BoolFlag{
						Name:  argTaper,
						Usage: "Apply the Hann taper",
						Value: true,
					},
				},
			},
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func before(c *cli.Context) error {
	logCfgFile := c.String(argLogCfgFile)
	fc, err := storage.ReadConfigFromFile(c.String(argCfgFile))
	if err != nil {
		return err
	}
	if fc != nil {
		// overwrite default settings from file
		cfg.Apply(fc)
		if logCfgFile == "" {
			logCfgFile = fc.LogConfigFile
		}
	}

	if logCfgFile != "" {
		if _, err := os.Stat(logCfgFile); os.IsNotExist(err) {
			log.Warn("No file ", logCfgFile, " will use default log4g configuration")
		} else {
			log.Info("Loading log4g config from ", logCfgFile)
			err := log4g.ConfigF(logCfgFile)
			if err != nil {
				err := errors.Wrapf(err, "Could not parse %s file as a log4g configuration, please check syntax ", logCfgFile)
				log.Fatal(err)
				return err
			}
		}
	}

	applyParamsToCfg(c)
	return nil
}

func applyParamsToCfg(c *cli.Context) {
	dc := storage.GetDefaultConfig()
	if d := c.String(argDir); dc.Dir != d {
		cfg.Dir = d
	}
	if sl := c.Float64(argSizeLimit); dc.SizeLimitGB != sl {
		cfg.SizeLimitGB = sl
	}
}

func storageUsage(c *cli.Context) error {
	sess, err := storage.NewSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	u, err := sess.Usage()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d files, %s of %s\n", sess.Dir(), u.Files, humanize.Bytes(u.Bytes), humanize.Bytes(cfg.SizeLimit()))
	return nil
}

func cleanup(c *cli.Context) error {
	dry := c.Bool(argDryRun)
	files, err := storage.Cleanup(cfg.Dir, dry)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	if dry {
		fmt.Printf("%d files would be removed\n", len(files))
	} else {
		fmt.Printf("%d files removed\n", len(files))
	}
	return nil
}

// object is what the commands need of a loaded data object
type object interface {
	spyio.Savable
	String() string
	LogString() string
	Close() error
}

func load(sess *storage.Session, src string, spectral bool) (object, error) {
	opt := datatype.WithSource(src, spyio.NewLoader(), nil)
	if spectral {
		return datatype.NewSpectralData(sess, opt)
	}
	return datatype.NewAnalogData(sess, opt)
}

func inspect(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected one file name, but got %v", c.Args().Slice())
	}
	sess, err := storage.NewSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	obj, err := load(sess, c.Args().First(), c.Bool(argSpectral))
	if err != nil {
		return err
	}
	defer obj.Close()
	fmt.Println(obj)
	if c.Bool(argLog) {
		fmt.Println(obj.LogString())
	}
	return nil
}

func convert(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected source and destination file names, but got %v", c.Args().Slice())
	}
	format, err := spyio.ParseFormat(c.String(argFormat))
	if err != nil {
		return err
	}
	sess, err := storage.NewSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	obj, err := load(sess, c.Args().Get(0), c.Bool(argSpectral))
	if err != nil {
		return err
	}
	defer obj.Close()
	dest := c.Args().Get(1)
	if util.FullExt(dest) == "" {
		dest = util.SetFileExt(dest, format.Ext())
	}
	if err := spyio.Save(obj, dest, format); err != nil {
		return err
	}
	log.Info("Saved ", dest, " in ", format, " format")
	return nil
}

func periodogram(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected source and destination file names, but got %v", c.Args().Slice())
	}
	foi, err := parseFloats(c.String(argFoi))
	if err != nil {
		return err
	}
	sess, err := storage.NewSession(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	ad, err := datatype.NewAnalogData(sess, datatype.WithSource(c.Args().Get(0), spyio.NewLoader(), nil))
	if err != nil {
		return err
	}
	defer ad.Close()
	if ad.Samplerate() == 0 {
		return fmt.Errorf("the samplerate of %s is not known", c.Args().Get(0))
	}

	sd, err := specest.Run(ad, &specest.Periodogram{Samplerate: ad.Samplerate(), Freqs: foi, Taper: c.Bool(argTaper)}, nil)
	if err != nil {
		return err
	}
	defer sd.Close()
	return spyio.Save(sd, c.Args().Get(1), spyio.FormatSPW)
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, fmt.Errorf("--%s is required", argFoi)
	}
	var res []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "wrong frequency %q", f)
		}
		res = append(res, v)
	}
	return res, nil
}
