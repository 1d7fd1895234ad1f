package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rstms/stablefs/vfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "list a directory, sorted",
	Args:  cobra.MaximumNArgs(1),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		names, err := svc.List(path)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}),
}

var sizesCmd = &cobra.Command{
	Use:   "sizes",
	Short: "print the size of each root entry in directory order",
	Args:  cobra.NoArgs,
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		sizes, err := svc.ListRootSizes()
		if err != nil {
			return err
		}
		for _, size := range sizes {
			fmt.Fprintln(cmd.OutOrStdout(), size)
		}
		return nil
	}),
}

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "print a text file",
	Args:  cobra.ExactArgs(1),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		text, err := svc.ReadWhole(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}),
}

var linesCmd = &cobra.Command{
	Use:   "lines PATH",
	Short: "print a text file line by line, numbered",
	Args:  cobra.ExactArgs(1),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		lines, err := svc.ReadLines(args[0])
		if err != nil {
			return err
		}
		for i, line := range lines {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i+1, line)
		}
		return nil
	}),
}

var tailCmd = &cobra.Command{
	Use:   "tail PATH OFFSET",
	Short: "print a text file from a byte offset",
	Args:  cobra.ExactArgs(2),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		offset, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return Fatalf("bad offset %q", args[1])
		}
		text, err := svc.ReadFromOffset(args[0], offset)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}),
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		return svc.MakeDirectory(args[0])
	}),
}

var rmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "remove a file or an empty directory",
	Args:  cobra.ExactArgs(1),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		return svc.Remove(args[0])
	}),
}

var appendCmd = &cobra.Command{
	Use:   "append PATH [CONTENT]",
	Short: "append to a file, reading stdin when CONTENT is omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		content, err := contentArg(cmd, args)
		if err != nil {
			return err
		}
		return svc.Append(args[0], content)
	}),
}

var writeCmd = &cobra.Command{
	Use:   "write PATH [CONTENT]",
	Short: "replace a file's content, reading stdin when CONTENT is omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withService(func(cmd *cobra.Command, svc *vfs.Service, args []string) error {
		content, err := contentArg(cmd, args)
		if err != nil {
			return err
		}
		return svc.Overwrite(args[0], content)
	}),
}

func contentArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 1 {
		return args[1], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", Fatal(err)
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(lsCmd, sizesCmd, catCmd, linesCmd, tailCmd, mkdirCmd, rmCmd, appendCmd, writeCmd)
}
