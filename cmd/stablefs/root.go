package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rstms/stablefs/storage"
	"github.com/rstms/stablefs/storage/factory"
	"github.com/rstms/stablefs/vfs"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stablefs",
	Short: "persistent FAT volume on paged storage",
	Long: `
Operate on a FAT style volume kept in a growable paged store. Paths are
anchored at the root with a leading "./", for example ./logs/app.log.
A new store must be formatted once with 'stablefs format CONFIRM_FORMAT'.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !viper.GetBool("verbose") {
			log.SetOutput(io.Discard)
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.stablefs.yaml)")
	optionString("backend", "b", "file", "storage backend: "+strings.Join(factory.List(), ", "))
	optionString("dir", "d", ".", "storage directory")
	optionUint64("max-pages", "", storage.DefaultMaxPages, "storage growth limit in 64KiB pages")
	optionUint64("format-pages", "", vfs.DefaultFormatPages, "storage size in pages set up by format")
	optionString("label", "", "", "volume label written by format")
	optionString("oem", "", "", "OEM name written by format")
	optionString("addr", "a", "localhost:8080", "listen address for serve")
	optionSwitch("verbose", "v", "log storage and volume events")
}

func viperKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func optionString(name, flag, value, description string) {
	rootCmd.PersistentFlags().StringP(name, flag, value, description)
	viper.BindPFlag(viperKey(name), rootCmd.PersistentFlags().Lookup(name))
}

func optionUint64(name, flag string, value uint64, description string) {
	rootCmd.PersistentFlags().Uint64P(name, flag, value, description)
	viper.BindPFlag(viperKey(name), rootCmd.PersistentFlags().Lookup(name))
}

func optionSwitch(name, flag, description string) {
	rootCmd.PersistentFlags().BoolP(name, flag, false, description)
	viper.BindPFlag(viperKey(name), rootCmd.PersistentFlags().Lookup(name))
}

func initConfig() {
	if cfgFile != "" {
		if !IsFile(cfgFile) {
			cobra.CheckErr(Fatalf("config file not found: %s", cfgFile))
		}
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stablefs")
	}
	viper.SetEnvPrefix("stablefs")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// openService opens the configured backend and mounts its volume.
func openService() (*vfs.Service, error) {
	config := storage.Config{
		Directory: viper.GetString("dir"),
		MaxPages:  viper.GetUint64("max_pages"),
	}
	device, err := factory.New(viper.GetString("backend"), config)
	if err != nil {
		return nil, err
	}
	return vfs.New(device, vfs.Config{
		FormatPages: viper.GetUint64("format_pages"),
		Label:       viper.GetString("label"),
		OEMName:     viper.GetString("oem"),
	}), nil
}

type serviceFunc func(cmd *cobra.Command, svc *vfs.Service, args []string) error

// withService runs fn against a freshly opened service and closes it
// afterwards.
func withService(fn serviceFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()
		return fn(cmd, svc, args)
	}
}
