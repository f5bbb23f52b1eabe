package main

import (
	"fmt"
	"os"

	"github.com/TIANLI0/LayerStudio/config"
	"github.com/TIANLI0/LayerStudio/utils"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "layerctl",
	Short: "Run LayerStudio image operations on local files",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if !verbose {
			return nil
		}
		return utils.InitLogger("debug")
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log processing details to stderr")
}

// loadConfig 配置文件缺失时使用默认配置
func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	return config.NewFromPath(path)
}

func main() {
	defer utils.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
