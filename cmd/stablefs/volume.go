package main

import (
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rstms/stablefs/server"
	"github.com/rstms/stablefs/vfs"
)

var formatCmd = &cobra.Command{
	Use:   "format [TOKEN]",
	Short: "format the volume, erasing all content",
	Long: `
Grow the storage to --format-pages and write an empty volume. Nothing
happens unless TOKEN is ` + vfs.ConfirmFormat + `.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		token := ""
		if len(args) > 0 {
			token = args[0]
		}
		msg, err := svc.InitVolume(token)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}),
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "list every path on the volume",
	Args:  cobra.NoArgs,
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		paths, err := svc.Tree()
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	}),
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "show volume and storage statistics",
	Args:  cobra.NoArgs,
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		info, err := svc.Info()
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(info))
		for key := range info {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", key, info[key])
		}
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:   "import SRC_DIR [DEST]",
	Short: "copy a host directory tree into the volume",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		dest := "."
		if len(args) > 1 {
			dest = args[1]
		}
		count, err := svc.Import(osfs.New(args[0]), "/", dest)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d files\n", count)
		return nil
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export DST_DIR",
	Short: "copy the whole volume into a host directory",
	Args:  cobra.ExactArgs(1),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		count, err := svc.Export(osfs.New(args[0]), "/")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d files\n", count)
		return nil
	}),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the volume over HTTP",
	Args:  cobra.NoArgs,
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		addr := viper.GetString("addr")
		log.Printf("serve: http://%s/api/{%s}\n", addr, strings.Join(server.Operations(), ","))
		if err := http.ListenAndServe(addr, server.New(svc)); err != nil {
			return Fatal(err)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(formatCmd, treeCmd, infoCmd, importCmd, exportCmd, serveCmd)
}
