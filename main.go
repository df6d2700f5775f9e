/*
 * This file is part of the Go Cesium Point Cloud Tiler distribution (https://github.com/mfbonfigli/gocesiumtiler).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/ecopia-map/mesh_tiler/internal/tiler"
	"github.com/ecopia-map/mesh_tiler/pkg"
	"github.com/ecopia-map/mesh_tiler/pkg/algorithm_manager/std_algorithm_manager"
	"github.com/ecopia-map/mesh_tiler/tools"
)

const VERSION = "1.0.0"

const logo = `
                     _       _   _ _
 _ __ ___   ___  ___| |__   | |_(_) | ___ _ __
| '_ ` + "`" + ` _ \ / _ \/ __| '_ \  | __| | |/ _ \ '__|
| | | | | |  __/\__ \ | | | | |_| | |  __/ |
|_| |_| |_|\___||___/_| |_|  \__|_|_|\___|_|
  A Cesium textured mesh tile generator written in golang
  Copyright YYYY
`

func main() {
	flagsGlobal := tools.ParseFlagsGlobal()
	defer glog.Flush()

	if *flagsGlobal.Help {
		showHelp()
		return
	}
	if *flagsGlobal.Version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		glog.Fatal("Please specify a subcommand [index|verify].")
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tiler.CommandIndex:
		mainCommandIndex(args)
	case tiler.CommandVerify:
		mainCommandVerify(args)
	default:
		glog.Fatalf("Unrecognized command [%q]. Command must be one of [index|verify]", cmd)
	}
}

func mainCommandIndex(args []string) {
	// Retrieve command line args
	flags := tools.ParseFlagsForCommandIndex(args)

	// Prints the command line flag description
	if *flags.Help {
		showHelp()
		return
	}

	if *flags.Version {
		printVersion()
		return
	}

	// set logging and timestamp logging
	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*flags.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}

	// defaults, config file and flags merged in a TilerOptions struct
	opts, err := flags.TilerOptions()
	if err != nil {
		glog.Fatal("Error reading the configuration: ", err)
	}
	glog.Infoln("options", tools.FmtJSONString(opts))

	// Validate TilerOptions
	if err := opts.Validate(); err != nil {
		glog.Fatal("Error parsing input parameters: ", err)
	}
	if err := tools.CreateDirectoryIfDoesNotExist(opts.TilerIndexOptions.Output); err != nil {
		glog.Fatal("Error creating the output folder: ", err)
	}

	// Starts the tiler
	defer timeTrack(time.Now(), "tiler")
	err = pkg.NewTiler(tools.NewStandardFileFinder(), std_algorithm_manager.NewAlgorithmManager(opts)).RunTiler(opts)

	if err != nil {
		glog.Fatal("Error while tiling: ", err)
	} else {
		tools.LogOutput("Conversion Completed")
	}
}

func mainCommandVerify(args []string) {
	flags := tools.ParseFlagsForCommandVerify(args)

	opts, err := flags.TilerOptions()
	if err != nil {
		glog.Fatal("Error reading the configuration: ", err)
	}
	glog.Infoln("options", tools.FmtJSONString(opts))

	if err := opts.Validate(); err != nil {
		glog.Fatal("Error parsing input parameters: ", err)
	}

	err = pkg.NewTilerVerify(tools.NewStandardFileFinder(), std_algorithm_manager.NewAlgorithmManager(opts)).RunTiler(opts)
	if err != nil {
		glog.Fatal("Verification failed: ", err)
	} else {
		tools.LogOutput("Verification Completed")
	}
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("mesh_tiler is a tool that processes textured OBJ terrain chunks and transforms them in a 3D Tiles level of detail quadtree consumable by Cesium.js")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Usage: mesh_tiler [global flags] index|verify [command flags]")
	fmt.Println("Run a command with -h to list its flags.")
	fmt.Println("")
	fmt.Println("Global flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
