package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	devConfig "github.com/kontiki/avisos/dev/config"
	"github.com/kontiki/avisos/utils"
	"github.com/kontiki/avisos/version"
)

var (
	cfgFile string
	config  *viper.Viper

	isDevEnv bool

	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", version.Version)
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "avisos",
		Short: `avisos tracks fire-extinguisher service expirations per client
and reminds them over WhatsApp as the dates approach.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to ./dev/config/server.yml with --dev)")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")

	return cmd
}

func serverConfig() *viper.Viper {
	config = viper.New()

	if cfgFile == "" {
		if !isDevEnv {
			log.Panic("a --config file is required outside dev mode")
		}
		cfgFile = devConfigFilePath()
	}

	config.SetConfigFile(cfgFile)
	config.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		log.Panic(fmt.Sprintf("error reading server config file: %v", err))
	}

	return config
}

// devConfigFilePath locates dev/config/server.yml under the working
// directory, writing the default dev config there on first run.
func devConfigFilePath() string {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Panic(err)
	}

	configDir := filepath.Join(workingDir, "dev", "config")
	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		log.Panic(err)
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	if !utils.FileExist(configFilePath) {
		if err := os.WriteFile(configFilePath, []byte(devConfig.SERVER_YML), 0600); err != nil {
			log.Panic(err)
		}
		fmt.Println(yellow("Warning:"), "wrote default dev config to", configFilePath)
	}

	return configFilePath
}
