// Copyright 2019 The Veil Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vaultserver

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/veilfs/veil/pkg/cli"
	"github.com/veilfs/veil/pkg/log"
	"github.com/veilfs/veil/pkg/userfs"
)

var VaultServerCmd = &cli.Command{
	Run:       vaultServerCmdRun,
	UsageLine: "vault-server [-db path] [-passphrase-file path] [-volname name] [-unmount] [logger flags] <mount-point>",
	Short:     "mount an encrypted vault volume at the specified mount point",
	Long: `
Vault server mounts a single encrypted volume backed by a local database
file. Entry contents are sealed with AES-GCM under a key derived from the
passphrase; the passphrase is read from the file given with
-passphrase-file, or from the VEIL_VAULT_PASSPHRASE environment variable
when the flag is unset.

The process stays in the foreground serving the mount until the volume is
unmounted (e.g. with 'vault-server -unmount <mount-point>').
    `,
}

func vaultServerCmdRun(cmd *cli.Command, args []string) error {
	var (
		dbFlag             string
		passphraseFileFlag string
		volnameFlag        string
		unmountFlag        bool

		logDirFlag         string
		suppressStderrFlag bool
		logModeFlag        logMode
	)

	cmd.FlagSet.StringVar(&dbFlag, "db", "veil-vault.db",
		"Path of the vault database file")
	cmd.FlagSet.StringVar(&passphraseFileFlag, "passphrase-file", "",
		"File holding the vault passphrase")
	cmd.FlagSet.StringVar(&volnameFlag, "volname", "Vault",
		"Volume name shown by the host")
	cmd.FlagSet.BoolVar(&unmountFlag, "unmount", false,
		"Unmount the volume at the specified mount point")
	cmd.FlagSet.StringVar(&logDirFlag, "log-dir", "",
		"Write log files to the specified directory")
	cmd.FlagSet.BoolVar(&suppressStderrFlag, "suppress-stderr", false,
		"Suppress standard error logging")
	cmd.FlagSet.Var(&logModeFlag, "log-mode",
		"Log mode for logs emitted globally, e.g. info|warn|error|debug")

	if err := cmd.FlagSet.Parse(args); err != nil {
		return cli.CmdParseError(err)
	}

	if cmd.FlagSet.NArg() > 1 {
		return cli.CmdParseError(
			errors.New(fmt.Sprintf("unrecognized arguments: %v", cmd.FlagSet.Args()[1:])))
	}
	if cmd.FlagSet.NArg() == 0 {
		return cli.CmdParseError(errors.New("unspecified mount-point"))
	}
	mountPoint := cmd.FlagSet.Arg(0)

	if logModeFlag.set {
		log.SetGlobalLogMode(logModeFlag.m)
	}

	writer := ioutil.Discard
	if logDirFlag != "" {
		writer = log.LogRotationWriter(logDirFlag, 50<<20 /* 50 MiB */)
	}
	if !suppressStderrFlag {
		writer = log.MultiWriter(writer, os.Stderr)
	}
	writer = log.SynchronizedWriter(writer)
	logger := log.New(log.Writer(writer), log.Flags(log.LstdFlags|log.LUTC))

	if unmountFlag {
		if err := userfs.Unmount(mountPoint); err != nil {
			logger.Error(err.Error())
			return err
		}
		logger.Infof("unmounted point: %s", mountPoint)
		return nil
	}

	passphrase, err := readPassphrase(passphraseFileFlag)
	if err != nil {
		logger.Error(err.Error())
		return err
	}

	vault, err := openVault(dbFlag, passphrase, logger)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	defer vault.Close()

	fs := userfs.New(vault,
		userfs.WithLogger(logger),
		userfs.WithEventSink(userfs.LogSink(logger)),
		userfs.WithThreadSafe(),
		userfs.WithMountOptions("volname="+volnameFlag),
	)
	return fs.Mount(mountPoint)
}

func readPassphrase(file string) (string, error) {
	if file != "" {
		raw, err := ioutil.ReadFile(file)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	if passphrase := os.Getenv("VEIL_VAULT_PASSPHRASE"); passphrase != "" {
		return passphrase, nil
	}
	return "", errors.New("no passphrase: use -passphrase-file or VEIL_VAULT_PASSPHRASE")
}
